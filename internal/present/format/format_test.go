package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/pkg/api"
)

const plan = "Here is your **plan**:\n\n" +
	"| Trade Name | Dose |\n|---|---|\n| Paracetamol | 500mg _twice_ |\n\n" +
	"- rest\n- drink water\n\n" +
	"1. call us\n2. come back"

func TestWritePlain(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlain(&buf, render.Render(plan)))
	out := buf.String()

	assert.Contains(t, out, "Here is your plan:\n")
	assert.Contains(t, out, "• rest\n• drink water\n")
	assert.Contains(t, out, "1. call us\n2. come back\n")
	assert.Regexp(t, `Trade Name\s+Dose`, out)
	assert.Regexp(t, `Paracetamol\s+500mg twice`, out)
	assert.NotContains(t, out, "**")
	assert.NotContains(t, out, "---")
}

func TestWritePlain_Banner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlain(&buf, []api.Node{api.Banner{Title: "Confirmed", Body: "See you at 3pm."}}))
	assert.Equal(t, "✅ Confirmed\nSee you at 3pm.\n", buf.String())
}

func TestMarkdown_RoundTrip(t *testing.T) {
	nodes := render.Render(plan)
	md := Markdown(nodes)
	assert.Equal(t, nodes, render.Render(md))
	assert.Contains(t, md, "| Paracetamol | 500mg _twice_ |")
}

func TestMarkdown_Banner(t *testing.T) {
	b := api.Banner{Title: "Payment Received", Body: "A doctor will call you."}
	assert.Equal(t, []api.Node{b}, render.Render(Markdown([]api.Node{b})))
}

func TestHTML(t *testing.T) {
	out := HTML(render.Render("Take **ORS** now\n\n- rest"))
	assert.Contains(t, out, `<p class="my-2 whitespace-pre-wrap">Take <strong>ORS</strong> now</p>`)
	assert.Contains(t, out, `<ul class="list-disc list-inside my-2 space-y-1"><li>rest</li></ul>`)
}

func TestHTML_EscapesAndSanitises(t *testing.T) {
	out := HTML(render.Render("<script>alert(1)</script> **<b>x</b>**"))
	assert.NotContains(t, out, "<script>")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestHTML_Banner(t *testing.T) {
	out := HTML([]api.Node{api.Banner{Title: "Confirmed", Body: "ok"}})
	assert.Contains(t, out, `<h4 class="font-bold text-green-900">✅ Confirmed</h4>`)
	assert.Contains(t, out, `<p>ok</p>`)
}

func TestWriteNDJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNDJSON(&buf, render.Render("a\n\n- b")))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	n, err := api.DecodeNode([]byte(lines[1]))
	require.NoError(t, err)
	assert.Equal(t, api.KindUnorderedList, n.Kind())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, render.Render("hello"), true))
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "paragraph", raw[0]["type"])
}

func TestWritePretty(t *testing.T) {
	var buf bytes.Buffer
	nodes := []api.Node{
		api.Paragraph{Spans: []api.Span{api.Plain("before")}},
		api.Banner{Title: "Confirmed", Body: "booked"},
	}
	require.NoError(t, WritePretty(&buf, nodes, PrettyOptions{Style: "notty", Width: 60}))
	out := buf.String()
	assert.Contains(t, out, "before")
	assert.Contains(t, out, "✅ Confirmed")
	assert.Contains(t, out, "booked")
	assert.Less(t, strings.Index(out, "before"), strings.Index(out, "Confirmed"))
}

func TestPlainLists(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlainSessions(&buf, []api.Session{{ID: "s1", Messages: 3, Preview: "tab\there", Confirmed: true}}, true))
	out := buf.String()
	assert.Contains(t, out, "preview")
	assert.Contains(t, out, `tab\there`)
	assert.Contains(t, out, "yes")

	buf.Reset()
	require.NoError(t, WriteRecordDetail(&buf, api.ConsultationRecord{ID: "r1", Name: "Ko Ko", Diagnosis: "flu"}))
	assert.Regexp(t, `Name:\s+Ko Ko`, buf.String())
	assert.NotContains(t, buf.String(), "Phone:")
}
