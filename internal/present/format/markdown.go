package format

import (
	"strconv"
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

// Markdown serialises nodes back into the assistant's markdown dialect.
// Rendering the result again yields the same nodes for any tree Render
// produced without a banner.
func Markdown(nodes []api.Node) string {
	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		parts = append(parts, markdownNode(n))
	}
	return strings.Join(parts, "\n\n")
}

func markdownNode(n api.Node) string {
	switch n := n.(type) {
	case api.Banner:
		return "✅ **" + n.Title + "** ✅\n" + n.Body
	case api.Paragraph:
		return markdownSpans(n.Spans)
	case api.UnorderedList:
		lines := make([]string, len(n.Items))
		for i, it := range n.Items {
			lines[i] = "- " + markdownSpans(it)
		}
		return strings.Join(lines, "\n")
	case api.OrderedList:
		lines := make([]string, len(n.Items))
		for i, it := range n.Items {
			lines[i] = strconv.Itoa(i+1) + ". " + markdownSpans(it)
		}
		return strings.Join(lines, "\n")
	case api.Table:
		return markdownTable(n)
	}
	return ""
}

func markdownSpans(spans []api.Span) string {
	var b strings.Builder
	for _, s := range spans {
		switch s.Style {
		case api.StyleBold:
			b.WriteString("**" + s.Text + "**")
		case api.StyleItalic:
			b.WriteString("_" + s.Text + "_")
		default:
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func markdownTable(t api.Table) string {
	var b strings.Builder
	b.WriteString(markdownRow(t.Headers))
	sep := make([]string, len(t.Headers))
	for i := range sep {
		sep[i] = "---"
	}
	b.WriteString("\n" + markdownRow(sep))
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = markdownSpans(c)
		}
		b.WriteString("\n" + markdownRow(cells))
	}
	return b.String()
}

func markdownRow(cells []string) string {
	if len(cells) == 0 {
		return "| |"
	}
	return "| " + strings.Join(cells, " | ") + " |"
}
