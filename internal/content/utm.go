package content

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Campaign returns the UTM campaign for now: newsletter-<yy><week>, where the
// week number counts Sundays as the first day of the week.
func Campaign(now time.Time) string {
	week := (now.YearDay() + 6 - int(now.Weekday())) / 7
	return fmt.Sprintf("newsletter-%02d%02d", now.Year()%100, week)
}

// TagURL appends UTM parameters to href when it is relative or points at domain.
// Links to other sites are returned unchanged.
func TagURL(href, domain string, now time.Time) string {
	href = strings.TrimSpace(href)
	if href == "" || domain == "" || strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "#") {
		return href
	}
	if strings.HasPrefix(href, "http") && !strings.Contains(href, domain) {
		return href
	}
	utm := "utm_source=" + domain + "&utm_medium=email&utm_campaign=" + Campaign(now)
	base, frag, hasFrag := strings.Cut(href, "#")
	if strings.Contains(base, "?") {
		base += "&" + utm
	} else {
		base += "?" + utm
	}
	if hasFrag {
		return base + "#" + frag
	}
	return base
}

// AddUTM tags every eligible link in body.
func AddUTM(body, domain string, now time.Time) (string, error) {
	if strings.TrimSpace(domain) == "" {
		return body, nil
	}
	nodes, err := parseFragment(body)
	if err != nil {
		return "", err
	}
	for _, n := range nodes {
		walk(n, func(n *html.Node) {
			if n.Type == html.ElementNode && n.DataAtom == atom.A {
				if href := getAttr(n, "href"); href != "" {
					setAttr(n, "href", TagURL(href, domain, now))
				}
			}
		})
	}
	return renderFragment(nodes)
}
