package helpers

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderMarkdown converts an LLM answer written in Markdown to HTML that is
// safe to embed in a page. Raw HTML in the source is not passed through.
// On a conversion error the raw text is sanitized instead.
func RenderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return RichTextHTMLPolicy().Sanitize(src)
	}
	return RichTextHTMLPolicy().Sanitize(buf.String())
}
