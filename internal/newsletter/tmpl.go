package newsletter

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"
	texttemplate "text/template"

	"ghost-newsletter/internal/frontmatter"
)

// DefaultSubject is used when the template frontmatter has no subject.
const DefaultSubject = "{{.newsletter_name}}: {{.post_title}}"

//go:embed newsletter.html
var defaultTemplate []byte

// ErrMissingVars is returned when rendering with an incomplete variable set.
var ErrMissingVars = errors.New("newsletter: missing template variables")

// Template is a parsed email template: YAML frontmatter (subject, preheader)
// followed by an html/template body.
type Template struct {
	subject   *texttemplate.Template
	preheader *texttemplate.Template
	body      *template.Template
	source    string
}

// Email is a rendered newsletter.
type Email struct {
	Subject   string
	Preheader string
	HTML      string
}

var funcs = template.FuncMap{
	// raw marks trusted HTML (post body, Ghost footer content).
	"raw": func(s string) template.HTML { return template.HTML(s) },
}

// DefaultTemplate returns the embedded template.
func DefaultTemplate() (*Template, error) {
	return ParseTemplate(defaultTemplate)
}

// LoadTemplate reads a template file; an empty path yields the embedded template.
func LoadTemplate(path string) (*Template, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTemplate()
	}
	doc, err := frontmatter.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return fromDocument(doc)
}

// ParseTemplate parses template source.
func ParseTemplate(src []byte) (*Template, error) {
	doc, err := frontmatter.Parse(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	return fromDocument(doc)
}

func fromDocument(doc frontmatter.Document) (*Template, error) {
	subj := strings.TrimSpace(doc.String("subject"))
	if subj == "" {
		subj = DefaultSubject
	}
	subject, err := texttemplate.New("subject").Option("missingkey=error").Parse(subj)
	if err != nil {
		return nil, fmt.Errorf("parse subject: %w", err)
	}
	pre := doc.String("preheader")
	if pre == "" {
		pre = "{{.preheader}}"
	}
	preheader, err := texttemplate.New("preheader").Option("missingkey=error").Parse(pre)
	if err != nil {
		return nil, fmt.Errorf("parse preheader: %w", err)
	}
	body, err := template.New("newsletter").Funcs(funcs).Option("missingkey=error").Parse(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("parse template body: %w", err)
	}
	return &Template{subject: subject, preheader: preheader, body: body, source: doc.Body}, nil
}

// Render executes the template. Every key in Keys must be present in v.
func (t *Template) Render(v Vars) (Email, error) {
	if missing := v.Missing(); len(missing) > 0 {
		return Email{}, fmt.Errorf("%w: %s", ErrMissingVars, strings.Join(missing, ", "))
	}
	data := v.clone()
	if _, ok := data["preheader"]; !ok {
		data["preheader"] = ""
	}
	var subj, pre, body bytes.Buffer
	if err := t.subject.Execute(&subj, data); err != nil {
		return Email{}, fmt.Errorf("render subject: %w", err)
	}
	if err := t.preheader.Execute(&pre, data); err != nil {
		return Email{}, fmt.Errorf("render preheader: %w", err)
	}
	// The body shows the preheader as a hidden preview span.
	data["preheader"] = strings.TrimSpace(pre.String())
	if err := t.body.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render body: %w", err)
	}
	return Email{
		Subject:   strings.TrimSpace(subj.String()),
		Preheader: data["preheader"],
		HTML:      body.String(),
	}, nil
}

var varRef = regexp.MustCompile(`\.([a-z_]+)`)

// Unreferenced returns the required keys the template body never mentions.
// Templates are free to skip variables; this is a lint aid.
func (t *Template) Unreferenced() []string {
	seen := map[string]struct{}{}
	for _, m := range varRef.FindAllStringSubmatch(t.source, -1) {
		seen[m[1]] = struct{}{}
	}
	var out []string
	for _, k := range Keys {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
