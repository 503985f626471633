package content

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const fontStack = "Inter, -apple-system, BlinkMacSystemFont, avenir next, avenir, helvetica neue, helvetica, ubuntu, roboto, noto, segoe ui, arial, sans-serif"

var (
	paragraphStyle  = "font-family: " + fontStack + "; font-size: 18px; font-weight: normal; margin: 0 0 16px 0; line-height: 1.6; color: #495057;"
	imageStyle      = "width: 100%; height: auto; border-radius: 4px; margin: 16px 0;"
	linkStyle       = "color: #007bff; text-decoration: none; font-weight: 500;"
	captionStyle    = "font-family: " + fontStack + "; font-size: 14px; color: #738a94; text-align: center; margin: 8px 0 16px 0; line-height: 1.4; font-style: italic;"
	blockquoteStyle = "margin: 24px 0; padding: 0 0 0 20px; border-left: 3px solid #e0e7eb; font-style: italic;"
	headingSizes    = map[atom.Atom]int{atom.H1: 32, atom.H2: 26, atom.H3: 21, atom.H4: 19, atom.H5: 17, atom.H6: 15}
)

func headingStyle(size int) string {
	return fmt.Sprintf("font-family: %s; font-size: %dpx; font-weight: 700; margin: 24px 0 16px 0; line-height: 1.3; color: #2c3e50;", fontStack, size)
}

// Process rewrites a Ghost post body for email clients: inline styles on
// paragraphs, headings, links, images and captions, and no fixed image sizes.
func Process(body string) (string, error) {
	nodes, err := parseFragment(body)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		walk(n, styleNode)
	}
	return renderFragment(nodes)
}

func styleNode(n *html.Node) {
	if n.Type != html.ElementNode {
		return
	}
	switch n.DataAtom {
	case atom.P:
		setAttr(n, "style", paragraphStyle)
	case atom.Img:
		setAttr(n, "style", imageStyle)
		removeAttr(n, "width")
		removeAttr(n, "height")
	case atom.A:
		setAttr(n, "style", linkStyle)
	case atom.Figcaption:
		setAttr(n, "style", captionStyle)
	case atom.Blockquote:
		setAttr(n, "style", blockquoteStyle)
	case atom.Span:
		// Ghost wraps caption text in pre-wrap spans.
		if n.Parent != nil && n.Parent.DataAtom == atom.Figcaption {
			style := getAttr(n, "style")
			if strings.Contains(style, "white-space: pre-wrap") {
				style = strings.Replace(style, "white-space: pre-wrap", "white-space: pre-wrap; display: block; word-wrap: break-word", 1)
			} else {
				style = "display: block; word-wrap: break-word;"
			}
			setAttr(n, "style", style)
		}
	default:
		if size, ok := headingSizes[n.DataAtom]; ok {
			setAttr(n, "style", headingStyle(size))
		}
	}
}

func parseFragment(body string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(body), ctx)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return nodes, nil
}

func renderFragment(nodes []*html.Node) (string, error) {
	var buf bytes.Buffer
	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", fmt.Errorf("render html: %w", err)
		}
	}
	return buf.String(), nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Key != key {
			out = append(out, a)
		}
	}
	n.Attr = out
}
