package frontmatter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithFrontmatter(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "newsletter.html")
	content := "" +
		"---\n" +
		"subject: \"{{.newsletter_name}}: {{.post_title}}\"\n" +
		"preheader: |-\n" +
		"  A short preview.\n" +
		"---\n" +
		"<html><body>{{.post_title}}</body></html>\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{{.newsletter_name}}: {{.post_title}}", doc.String("subject"))
	assert.Equal(t, "A short preview.", doc.String("preheader"))
	assert.Equal(t, "<html><body>{{.post_title}}</body></html>\n", doc.Body)
}

func TestParseWithoutFrontmatter(t *testing.T) {
	body := "<p>No frontmatter here.</p>\n"
	doc, err := Parse(strings.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, doc.Meta)
	assert.Equal(t, body, doc.Body)
}

func TestParseUnterminatedFrontmatter(t *testing.T) {
	_, err := Parse(strings.NewReader("---\nsubject: x\n<p>body</p>\n"))
	require.Error(t, err)
}

func TestParseEmptyFrontmatter(t *testing.T) {
	doc, err := Parse(strings.NewReader("---\n---\nbody"))
	require.NoError(t, err)
	assert.NotNil(t, doc.Meta)
	assert.Equal(t, "", doc.String("subject"))
	assert.Equal(t, "body", doc.Body)
}
