package render

import (
	"regexp"
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

var (
	paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)
	bulletRe         = regexp.MustCompile(`^\s*[-*+]\s`)
	numberedRe       = regexp.MustCompile(`^\s*\d+\.\s`)
)

// renderText splits a text block on blank lines and classifies each
// paragraph as a bullet list, a numbered list or prose.
func renderText(text string) []api.Node {
	var out []api.Node
	for _, para := range paragraphBreakRe.Split(strings.TrimSpace(text), -1) {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out = append(out, renderParagraph(para))
	}
	return out
}

func renderParagraph(para string) api.Node {
	lines := strings.Split(para, "\n")
	if allMatch(lines, bulletRe) {
		return api.UnorderedList{Items: listItems(lines, bulletRe)}
	}
	if allMatch(lines, numberedRe) {
		return api.OrderedList{Items: listItems(lines, numberedRe)}
	}
	return api.Paragraph{Spans: FormatInline(para)}
}

func allMatch(lines []string, re *regexp.Regexp) bool {
	for _, l := range lines {
		if !re.MatchString(l) {
			return false
		}
	}
	return true
}

// listItems strips exactly the marker prefix from each line.
func listItems(lines []string, marker *regexp.Regexp) [][]api.Span {
	items := make([][]api.Span, 0, len(lines))
	for _, l := range lines {
		loc := marker.FindStringIndex(l)
		items = append(items, FormatInline(l[loc[1]:]))
	}
	return items
}
