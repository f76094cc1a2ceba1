// Package render converts chat content into HTML that is safe to inject
// into the widget transcript.
//
// The asymmetry here is a security invariant: agent replies are the only
// transcript content interpreted as markup. User and system text is always
// escaped, so visitor-submitted markdown or HTML never executes in the
// transcript.
package render

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// GFM so the agent's markdown tables survive rendering.
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// AgentHTML renders agent markdown into sanitized HTML.
func AgentHTML(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return EscapedHTML(src)
	}
	return policy.Sanitize(buf.String())
}

// EscapedHTML escapes text for literal display.
func EscapedHTML(text string) string {
	return html.EscapeString(text)
}
