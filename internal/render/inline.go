package render

import (
	"regexp"

	"github.com/mithrel/medchat/pkg/api"
)

// emphasisRe finds **bold** or _italic_ runs, leftmost first with bold
// preferred at the same offset. Interiors are non-empty and stay on one line.
var emphasisRe = regexp.MustCompile(`\*\*(.+?)\*\*|_(.+?)_`)

// FormatInline splits text into plain, bold and italic spans. Markers are
// removed from matched runs; unmatched markers are kept as literal text.
func FormatInline(text string) []api.Span {
	if text == "" {
		return []api.Span{}
	}
	var (
		out  []api.Span
		last int
	)
	for _, m := range emphasisRe.FindAllStringSubmatchIndex(text, -1) {
		if m[0] > last {
			out = append(out, api.Plain(text[last:m[0]]))
		}
		if m[2] >= 0 {
			out = append(out, api.Bold(text[m[2]:m[3]]))
		} else {
			out = append(out, api.Italic(text[m[4]:m[5]]))
		}
		last = m[1]
	}
	if last < len(text) {
		out = append(out, api.Plain(text[last:]))
	}
	return out
}
