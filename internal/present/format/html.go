package format

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mithrel/medchat/pkg/api"
)

// htmlPolicy admits exactly the markup HTML emits.
var htmlPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("div", "h4", "p", "strong", "em", "ul", "ol", "li")
	p.AllowElements("table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements(
		"div", "h4", "p", "ul", "ol", "li", "table", "thead", "tr", "th", "td",
	)
	return p
}()

// HTML renders nodes as a sanitised fragment styled with utility classes.
func HTML(nodes []api.Node) string {
	var b strings.Builder
	b.WriteString(`<div class="text-slate-800">`)
	for _, n := range nodes {
		writeHTMLNode(&b, n)
	}
	b.WriteString(`</div>`)
	return htmlPolicy.Sanitize(b.String())
}

func writeHTMLNode(b *strings.Builder, n api.Node) {
	switch n := n.(type) {
	case api.Banner:
		b.WriteString(`<div class="bg-green-100 border-l-4 border-green-500 text-green-800 p-4 my-2 rounded-r-lg">`)
		b.WriteString(`<h4 class="font-bold text-green-900">✅ ` + html.EscapeString(n.Title) + `</h4>`)
		b.WriteString(`<p>` + html.EscapeString(n.Body) + `</p></div>`)
	case api.Paragraph:
		b.WriteString(`<p class="my-2 whitespace-pre-wrap">` + htmlSpans(n.Spans) + `</p>`)
	case api.UnorderedList:
		b.WriteString(`<ul class="list-disc list-inside my-2 space-y-1">`)
		for _, it := range n.Items {
			b.WriteString(`<li>` + htmlSpans(it) + `</li>`)
		}
		b.WriteString(`</ul>`)
	case api.OrderedList:
		b.WriteString(`<ol class="list-decimal list-inside my-2 space-y-1">`)
		for _, it := range n.Items {
			b.WriteString(`<li>` + htmlSpans(it) + `</li>`)
		}
		b.WriteString(`</ol>`)
	case api.Table:
		b.WriteString(`<div class="my-4 overflow-x-auto"><table class="w-full text-sm text-left text-gray-600 border-collapse">`)
		b.WriteString(`<thead class="text-xs text-white uppercase bg-teal-700"><tr>`)
		for _, h := range n.Headers {
			b.WriteString(`<th class="px-4 py-3">` + html.EscapeString(h) + `</th>`)
		}
		b.WriteString(`</tr></thead><tbody>`)
		for _, row := range n.Rows {
			b.WriteString(`<tr class="bg-white border-b">`)
			for _, c := range row {
				b.WriteString(`<td class="px-4 py-3">` + htmlSpans(c) + `</td>`)
			}
			b.WriteString(`</tr>`)
		}
		b.WriteString(`</tbody></table></div>`)
	}
}

func htmlSpans(spans []api.Span) string {
	var b strings.Builder
	for _, s := range spans {
		t := html.EscapeString(s.Text)
		switch s.Style {
		case api.StyleBold:
			b.WriteString("<strong>" + t + "</strong>")
		case api.StyleItalic:
			b.WriteString("<em>" + t + "</em>")
		default:
			b.WriteString(t)
		}
	}
	return b.String()
}
