package render

import "strings"

// block is a contiguous span of the message: either free text or table rows.
type block interface{ isBlock() }

// textBlock holds raw lines, newline-terminated, awaiting paragraph splitting.
type textBlock string

// tableBlock holds trimmed cell strings with separator rows removed.
type tableBlock [][]string

func (textBlock) isBlock()  {}
func (tableBlock) isBlock() {}

// segment partitions text into text and table blocks, preserving order.
func segment(text string) []block {
	var (
		out     []block
		cur     strings.Builder
		inTable bool
		rows    tableBlock
	)
	for _, line := range strings.Split(text, "\n") {
		if isTableRow(line) {
			if !inTable {
				if strings.TrimSpace(cur.String()) != "" {
					out = append(out, textBlock(cur.String()))
				}
				cur.Reset()
				inTable = true
				rows = tableBlock{}
			}
			cells := splitCells(line)
			if !isSeparatorRow(cells) {
				rows = append(rows, cells)
			}
			continue
		}
		if inTable {
			out = append(out, rows)
			inTable = false
			rows = nil
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
	}
	switch {
	case inTable:
		// Kept even when every row was a separator.
		out = append(out, rows)
	case strings.TrimSpace(cur.String()) != "":
		out = append(out, textBlock(cur.String()))
	}
	return out
}

func isTableRow(line string) bool {
	t := strings.TrimSpace(line)
	return strings.HasPrefix(t, "|") && strings.HasSuffix(t, "|")
}

// splitCells drops the segments outside the leading and trailing pipes and
// trims the rest.
func splitCells(line string) []string {
	parts := strings.Split(strings.TrimSpace(line), "|")
	if len(parts) < 2 {
		return []string{}
	}
	parts = parts[1 : len(parts)-1]
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	return cells
}

// isSeparatorRow reports whether every cell is empty once dashes are removed.
// A row with no cells at all counts as a separator.
func isSeparatorRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(strings.ReplaceAll(c, "-", "")) != "" {
			return false
		}
	}
	return true
}
