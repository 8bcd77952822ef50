// richtext.go — anime descriptions rendered from markdown to safe HTML.
package richtext

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.Linkify, extension.Strikethrough),
	// Admins type descriptions in a plain textarea; keep their line breaks.
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

var policy = func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}()

// Render converts markdown to sanitised HTML. Raw HTML in the input is
// escaped by goldmark and whatever survives is filtered by the UGC policy.
func Render(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(markdown), &buf); err != nil {
		return policy.Sanitize(markdown)
	}
	return strings.TrimSpace(policy.Sanitize(buf.String()))
}
