package format

import (
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mithrel/medchat/pkg/api"
)

func esc(field string) string {
	field = strings.ReplaceAll(field, "\t", "\\t")
	field = strings.ReplaceAll(field, "\n", "\\n")
	return field
}

// WritePlain writes nodes as terminal text with emphasis markers dropped.
// Nodes are separated by a blank line.
func WritePlain(w io.Writer, nodes []api.Node) error {
	for i, n := range nodes {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if err := writePlainNode(w, n); err != nil {
			return err
		}
	}
	return nil
}

func writePlainNode(w io.Writer, n api.Node) error {
	switch n := n.(type) {
	case api.Banner:
		s := "✅ " + n.Title + "\n"
		if n.Body != "" {
			s += n.Body + "\n"
		}
		_, err := io.WriteString(w, s)
		return err
	case api.Paragraph:
		_, err := io.WriteString(w, api.SpansText(n.Spans)+"\n")
		return err
	case api.UnorderedList:
		var b strings.Builder
		for _, it := range n.Items {
			b.WriteString("• " + api.SpansText(it) + "\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	case api.OrderedList:
		var b strings.Builder
		for i, it := range n.Items {
			b.WriteString(strconv.Itoa(i+1) + ". " + api.SpansText(it) + "\n")
		}
		_, err := io.WriteString(w, b.String())
		return err
	case api.Table:
		return writePlainTable(w, n)
	}
	return nil
}

func writePlainTable(w io.Writer, t api.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = io.WriteString(tw, joinRow(t.Headers)+"\n")
	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, c := range row {
			cells[i] = api.SpansText(c)
		}
		_, _ = io.WriteString(tw, joinRow(cells)+"\n")
	}
	return tw.Flush()
}

func joinRow(cells []string) string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = esc(c)
	}
	return strings.Join(out, "\t")
}
