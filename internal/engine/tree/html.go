package tree

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Document is a parsed HTML page with CSS selection.
type Document struct {
	doc *goquery.Document
}

// ParseHTML parses an HTML page.
func ParseHTML(data []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: html: %w", ErrParse, err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Find selects elements matching a CSS selector.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// ScriptSources returns the src attribute of every external script.
func (d *Document) ScriptSources() []string {
	var out []string
	d.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if src, ok := s.Attr("src"); ok && src != "" {
			out = append(out, src)
		}
	})
	return out
}

// InlineScripts returns the bodies of scripts without a src attribute.
func (d *Document) InlineScripts() []string {
	var out []string
	d.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("src"); ok {
			return
		}
		if body := strings.TrimSpace(s.Text()); body != "" {
			out = append(out, body)
		}
	})
	return out
}

// Meta returns the content of the first meta tag whose property, name or
// itemprop attribute equals key.
func (d *Document) Meta(key string) string {
	for _, attr := range []string{"property", "name", "itemprop"} {
		sel := d.Find(fmt.Sprintf("meta[%s=%q]", attr, key)).First()
		if v, ok := sel.Attr("content"); ok {
			return v
		}
	}
	return ""
}
