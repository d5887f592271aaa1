// Package preview renders editor content for the preview pane
package preview

import (
	"bytes"

	"github.com/brettbedarf/dok"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Markdown renders GitHub flavored markdown to HTML. Raw HTML in the source
// is omitted from the output.
type Markdown struct {
	md goldmark.Markdown
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

func (m *Markdown) Preview(content string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var _ dok.Previewer = (*Markdown)(nil)
