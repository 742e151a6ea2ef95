// Package legal renders the embedded legal documents to sanitized HTML.
package legal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

//go:embed docs/*.md
var docs embed.FS

type Document struct {
	Slug  string
	Title string
	HTML  template.HTML
}

type Library struct {
	bySlug map[string]*Document
}

// Load converts every embedded document once at startup. The markdown
// is trusted (it ships with the binary) but is still sanitized so a bad
// edit cannot inject script into a rendered page.
func Load() (*Library, error) {
	policy := bluemonday.UGCPolicy()
	md := goldmark.New()

	lib := &Library{bySlug: make(map[string]*Document)}
	for slug, title := range map[string]string{
		"terms":   "Terms of Service",
		"privacy": "Privacy Policy",
	} {
		raw, err := docs.ReadFile("docs/" + slug + ".md")
		if err != nil {
			return nil, fmt.Errorf("reading legal document %q: %w", slug, err)
		}

		var buf bytes.Buffer
		if err := md.Convert(raw, &buf); err != nil {
			return nil, fmt.Errorf("rendering legal document %q: %w", slug, err)
		}

		lib.bySlug[slug] = &Document{
			Slug:  slug,
			Title: title,
			HTML:  template.HTML(policy.SanitizeBytes(buf.Bytes())),
		}
	}

	return lib, nil
}

func (l *Library) Get(slug string) (*Document, bool) {
	doc, ok := l.bySlug[slug]
	return doc, ok
}
