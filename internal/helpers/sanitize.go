package helpers

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richTextPolicyOnce sync.Once
	richTextPolicy     *bluemonday.Policy
)

// RichTextHTMLPolicy returns a shared policy that keeps a small set of
// formatting tags (paragraphs, emphasis, lists, code blocks, tables, links)
// and removes scripts, event handlers and javascript: URLs.
func RichTextHTMLPolicy() *bluemonday.Policy {
	richTextPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowURLSchemes("http", "https", "mailto")
		policy.RequireParseableURLs(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		richTextPolicy = policy
	})
	return richTextPolicy
}

// SanitizeHTMLRichText cleans s with RichTextHTMLPolicy.
func SanitizeHTMLRichText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(RichTextHTMLPolicy().Sanitize(s))
}

var highlightTag = regexp.MustCompile(`(?i)</?(strong|b|em)>`)

// StripHighlights removes the bare <strong>, <b> and <em> tags search APIs
// wrap around matched terms and decodes HTML entities. Any other angle
// bracket text is left alone.
func StripHighlights(s string) string {
	return strings.TrimSpace(html.UnescapeString(highlightTag.ReplaceAllString(s, "")))
}
