package helpers

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/sambeau/mustachepp/pkg/mustache"
)

// Markdown renders body as a template and converts the result from
// Markdown to HTML with GitHub Flavored Markdown enabled.
//
//	{{#markdown}}# {{title}}{{/markdown}}
//	{{#markdown unsafe ids}}...{{/markdown}}
//
// Raw HTML in the Markdown is dropped unless args contains "unsafe", and
// headings get id attributes when args contains "ids".
func Markdown(s *mustache.Section, args, body string) (string, error) {
	text, err := s.Render(body)
	if err != nil {
		return "", err
	}

	var parserOptions []parser.Option
	var rendererOptions []goldmark.Option
	for _, opt := range strings.Fields(args) {
		switch opt {
		case "ids":
			parserOptions = append(parserOptions, parser.WithAutoHeadingID())
		case "unsafe":
			rendererOptions = append(rendererOptions, goldmark.WithRendererOptions(html.WithUnsafe()))
		}
	}

	md := goldmark.New(append([]goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parserOptions...),
	}, rendererOptions...)...)

	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}
