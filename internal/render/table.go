package render

import "github.com/mithrel/medchat/pkg/api"

// renderTable uses the first row as raw headers and formats every data cell.
// A table with no rows produces no node.
func renderTable(rows tableBlock) (api.Node, bool) {
	if len(rows) == 0 {
		return nil, false
	}
	t := api.Table{
		Headers: append([]string(nil), rows[0]...),
		Rows:    make([][]api.Cell, 0, len(rows)-1),
	}
	for _, row := range rows[1:] {
		cells := make([]api.Cell, len(row))
		for i, c := range row {
			cells[i] = api.Cell(FormatInline(c))
		}
		t.Rows = append(t.Rows, cells)
	}
	return t, true
}
