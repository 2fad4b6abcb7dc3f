package markdown

import (
	"bytes"
	"html"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in the source is escaped because WithUnsafe is not set.
var renderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// ToHTML renders markdown; on a render failure it returns the escaped source.
func ToHTML(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := renderer.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return buf.String()
}
