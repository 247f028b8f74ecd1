// Package render turns one assistant message into an ordered tree of render
// nodes. It understands a small line-oriented markup: paragraphs, bullet and
// numbered lists, pipe tables, **bold** and _italic_ runs, and a checkmark
// confirmation banner. Anything it does not recognise is kept as plain text.
//
// Rendering is a pure function of its input and is safe for concurrent use.
package render

import (
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

// Render parses text and returns its render nodes in source order. Empty or
// blank input yields no nodes.
func Render(text string) []api.Node {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	if b, ok := detectBanner(text); ok {
		return []api.Node{b}
	}

	var out []api.Node
	for _, blk := range segment(text) {
		switch blk := blk.(type) {
		case textBlock:
			out = append(out, renderText(string(blk))...)
		case tableBlock:
			if n, ok := renderTable(blk); ok {
				out = append(out, n)
			}
		}
	}
	return out
}
