package frontmatter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is a text file with optional YAML frontmatter.
type Document struct {
	Meta map[string]any
	Body string
}

// String returns the frontmatter value for key, or "" if absent or not a string.
func (d Document) String(key string) string {
	s, _ := d.Meta[key].(string)
	return s
}

// ParseFile reads a file and splits YAML frontmatter from its body.
func ParseFile(path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse splits YAML frontmatter from the body.
// Frontmatter is expected at the top, between two lines containing only "---".
func Parse(r io.Reader) (Document, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(3)
	if err != nil && !errors.Is(err, io.EOF) {
		return Document{}, err
	}
	hasMeta := string(peek) == "---"

	var metaBuf, bodyBuf strings.Builder
	if hasMeta {
		// opening delimiter
		if _, err := br.ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, err
		}
		closed := false
		for {
			l, err := br.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return Document{}, err
			}
			if strings.TrimSpace(l) == "---" {
				closed = true
				break
			}
			metaBuf.WriteString(l)
			if errors.Is(err, io.EOF) {
				break
			}
		}
		if !closed {
			return Document{}, errors.New("frontmatter: missing closing ---")
		}
	}
	if _, err := io.Copy(&bodyBuf, br); err != nil {
		return Document{}, err
	}

	d := Document{Meta: map[string]any{}, Body: bodyBuf.String()}
	if hasMeta {
		if err := yaml.Unmarshal([]byte(metaBuf.String()), &d.Meta); err != nil {
			return Document{}, fmt.Errorf("frontmatter: %w", err)
		}
		if d.Meta == nil {
			d.Meta = map[string]any{}
		}
	}
	return d, nil
}
