package widget

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// MarkdownRenderer turns untrusted bot text into HTML safe to inject into a
// page. Two defense layers, both mandatory: goldmark is built WITHOUT the
// unsafe raw-HTML option, so markup embedded in the message is dropped at
// parse time, and bluemonday then sanitizes whatever the renderer produced.
type MarkdownRenderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdownRenderer() *MarkdownRenderer {
	return &MarkdownRenderer{
		// No html.WithUnsafe: raw HTML in the source is omitted, not echoed.
		md:     goldmark.New(goldmark.WithExtensions(extension.Linkify)),
		policy: bluemonday.UGCPolicy(),
	}
}

// Render returns sanitized HTML for the given markdown text.
func (r *MarkdownRenderer) Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("error rendering markdown: %w", err)
	}
	return r.policy.Sanitize(buf.String()), nil
}
