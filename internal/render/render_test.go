package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mithrel/medchat/pkg/api"
)

func spans(s ...api.Span) []api.Span { return s }

func TestRender_Empty(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\n", " \t\n  \n"} {
		assert.Empty(t, Render(in), "input %q", in)
	}
}

func TestRender_BannerPrecedence(t *testing.T) {
	in := "✅ **Teleconsultation Confirmed** ✅\n" +
		"Your appointment is booked.\n\n" +
		"| Trade Name | Dose |\n|---|---|\n| Paracetamol | 500mg |\n\n" +
		"- rest\n- water\n"
	got := Render(in)
	require.Len(t, got, 1)
	b, ok := got[0].(api.Banner)
	require.True(t, ok, "got %T", got[0])
	assert.Equal(t, "Teleconsultation Confirmed", b.Title)
	assert.Equal(t, "Your appointment is booked.\n\n| Trade Name | Dose |\n|---|---|\n| Paracetamol | 500mg |\n\n- rest\n- water", b.Body)
}

func TestDetectBanner(t *testing.T) {
	t.Run("matches anywhere in the message", func(t *testing.T) {
		b, ok := detectBanner("Thanks!\n✅ **  Paid  ** ✅  \n  A doctor will call.  ")
		require.True(t, ok)
		assert.Equal(t, "Paid", b.Title)
		assert.Equal(t, "A doctor will call.", b.Body)
	})

	t.Run("title keeps inline markers verbatim", func(t *testing.T) {
		b, ok := detectBanner("✅ **Booked _today_** ✅\nsee **you**")
		require.True(t, ok)
		assert.Equal(t, "Booked _today_", b.Title)
		assert.Equal(t, "see **you**", b.Body)
	})

	t.Run("variation selector after the checkmark", func(t *testing.T) {
		b, ok := detectBanner("✅\uFE0F **Confirmed** ✅\uFE0F\nok")
		require.True(t, ok)
		assert.Equal(t, "Confirmed", b.Title)
	})

	t.Run("empty body", func(t *testing.T) {
		b, ok := detectBanner("✅ **Confirmed** ✅\n")
		require.True(t, ok)
		assert.Equal(t, "", b.Body)
	})

	t.Run("requires newline after closing checkmark", func(t *testing.T) {
		_, ok := detectBanner("✅ **Confirmed** ✅ booked")
		assert.False(t, ok)
	})

	t.Run("requires both checkmarks", func(t *testing.T) {
		_, ok := detectBanner("**Confirmed** ✅\nbody")
		assert.False(t, ok)
	})

	t.Run("title does not span lines", func(t *testing.T) {
		_, ok := detectBanner("✅ **Con\nfirmed** ✅\nbody")
		assert.False(t, ok)
	})
}

func TestRender_TableSeparatorExclusion(t *testing.T) {
	in := "| Trade Name | Dose |\n|---|---|\n| Paracetamol | 500mg |"
	got := Render(in)
	require.Len(t, got, 1)
	tbl, ok := got[0].(api.Table)
	require.True(t, ok)
	assert.Equal(t, []string{"Trade Name", "Dose"}, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, []api.Cell{{api.Plain("Paracetamol")}, {api.Plain("500mg")}}, tbl.Rows[0])
}

func TestRender_TableCells(t *testing.T) {
	in := "| **Name** | Dose |\n| :---: | --- |\n| **ORS** | 1 _sachet_ |\n| Antacid |"
	got := Render(in)
	require.Len(t, got, 1)
	tbl := got[0].(api.Table)

	// Headers are raw; a ":---:" cell is not a separator once dashes are gone.
	assert.Equal(t, []string{"**Name**", "Dose"}, tbl.Headers)
	require.Len(t, tbl.Rows, 3)
	assert.Equal(t, []api.Cell{{api.Plain(":---:")}, {api.Plain("---")}}, tbl.Rows[0])
	assert.Equal(t, []api.Cell{
		{api.Bold("ORS")},
		{api.Plain("1 "), api.Italic("sachet")},
	}, tbl.Rows[1])
	// Ragged rows are kept.
	assert.Equal(t, []api.Cell{{api.Plain("Antacid")}}, tbl.Rows[2])
}

func TestRender_OrderPreservation(t *testing.T) {
	in := "Here is your plan:\n" +
		"| Trade Name | Dose |\n|---|---|\n| ORS | 1 sachet |\n" +
		"Advice:\n\n- rest\n- water\n" +
		"| A |\n| b |\n" +
		"1. come back\n2. call us"
	got := Render(in)

	kinds := make([]api.NodeKind, len(got))
	for i, n := range got {
		kinds[i] = n.Kind()
	}
	assert.Equal(t, []api.NodeKind{
		api.KindParagraph,
		api.KindTable,
		api.KindParagraph,
		api.KindUnorderedList,
		api.KindTable,
		api.KindOrderedList,
	}, kinds)
}

func TestRender_SeparatorOnlyTable(t *testing.T) {
	segs := segment("before\n|---|---|\n| - | -- |\nafter")
	require.Len(t, segs, 3)
	assert.Equal(t, textBlock("before\n"), segs[0])
	assert.Equal(t, tableBlock{}, segs[1])
	assert.Equal(t, textBlock("after\n"), segs[2])

	// The empty table contributes no node and is not turned back into text.
	got := Render("before\n|---|---|\nafter")
	require.Len(t, got, 2)
	assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("before"))}, got[0])
	assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("after"))}, got[1])
}

func TestSegment(t *testing.T) {
	t.Run("blank text before a table is dropped", func(t *testing.T) {
		segs := segment("\n  \n| a |\n")
		require.Len(t, segs, 1)
		assert.Equal(t, tableBlock{{"a"}}, segs[0])
	})

	t.Run("table at end of input is flushed", func(t *testing.T) {
		segs := segment("text\n| a | b |")
		require.Len(t, segs, 2)
		assert.Equal(t, tableBlock{{"a", "b"}}, segs[1])
	})

	t.Run("indented rows and lone pipes", func(t *testing.T) {
		segs := segment("   | x |  y |   \n|\n||")
		require.Len(t, segs, 1)
		assert.Equal(t, tableBlock{{"x", "y"}}, segs[0])
	})

	t.Run("pipe inside prose is text", func(t *testing.T) {
		segs := segment("a | b\n| c")
		require.Len(t, segs, 1)
		assert.Equal(t, textBlock("a | b\n| c\n"), segs[0])
	})
}

func TestRender_Lists(t *testing.T) {
	t.Run("unordered list strips only the marker", func(t *testing.T) {
		got := Render("- take rest\n- drink water")
		require.Len(t, got, 1)
		assert.Equal(t, api.UnorderedList{Items: [][]api.Span{
			{api.Plain("take rest")},
			{api.Plain("drink water")},
		}}, got[0])
	})

	t.Run("mixed bullet markers and indentation", func(t *testing.T) {
		got := Render("  * one\n+ **two**\n - three")
		require.Len(t, got, 1)
		assert.Equal(t, api.UnorderedList{Items: [][]api.Span{
			{api.Plain("one")},
			{api.Bold("two")},
			{api.Plain("three")},
		}}, got[0])
	})

	t.Run("ordered list", func(t *testing.T) {
		got := Render("1. Paracetamol\n2. _ORS_\n10. rest")
		require.Len(t, got, 1)
		assert.Equal(t, api.OrderedList{Items: [][]api.Span{
			{api.Plain("Paracetamol")},
			{api.Italic("ORS")},
			{api.Plain("rest")},
		}}, got[0])
	})

	t.Run("mixed lines fall back to a paragraph", func(t *testing.T) {
		in := "Advice:\n- rest\n- water"
		got := Render(in)
		require.Len(t, got, 1)
		assert.Equal(t, api.Paragraph{Spans: spans(api.Plain(in))}, got[0])
	})

	t.Run("bullets and numbers mixed fall back to a paragraph", func(t *testing.T) {
		got := Render("- rest\n1. water")
		require.Len(t, got, 1)
		assert.Equal(t, api.KindParagraph, got[0].Kind())
	})

	t.Run("marker without following space is prose", func(t *testing.T) {
		got := Render("-5 degrees")
		require.Len(t, got, 1)
		assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("-5 degrees"))}, got[0])
	})

	t.Run("classification is per paragraph", func(t *testing.T) {
		got := Render("- rest\n\nplease\n\n1. call\n2. visit")
		require.Len(t, got, 3)
		assert.Equal(t, api.KindUnorderedList, got[0].Kind())
		assert.Equal(t, api.KindParagraph, got[1].Kind())
		assert.Equal(t, api.KindOrderedList, got[2].Kind())
	})
}

func TestRender_Paragraphs(t *testing.T) {
	t.Run("plain text is one trimmed span", func(t *testing.T) {
		got := Render("   Drink plenty of water.  \n")
		require.Len(t, got, 1)
		assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("Drink plenty of water."))}, got[0])
	})

	t.Run("blank lines with whitespace split paragraphs", func(t *testing.T) {
		got := Render("first\n   \n\t\nsecond\nline")
		require.Len(t, got, 2)
		assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("first"))}, got[0])
		assert.Equal(t, api.Paragraph{Spans: spans(api.Plain("second\nline"))}, got[1])
	})

	t.Run("crlf input", func(t *testing.T) {
		got := Render("- a\r\n- b\r\n\r\nend")
		require.Len(t, got, 2)
		assert.Equal(t, api.UnorderedList{Items: [][]api.Span{{api.Plain("a")}, {api.Plain("b")}}}, got[0])
	})
}

func TestFormatInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []api.Span
	}{
		{"empty", "", []api.Span{}},
		{"plain", "no markers here", spans(api.Plain("no markers here"))},
		{
			"mixed emphasis",
			"Take **Paracetamol** _after meals_.",
			spans(api.Plain("Take "), api.Bold("Paracetamol"), api.Plain(" "), api.Italic("after meals"), api.Plain(".")),
		},
		{"unterminated bold", "50% off **sale", spans(api.Plain("50% off **sale"))},
		{"empty bold interior", "a **** b", spans(api.Plain("a **** b"))},
		{"lone underscore", "snake_case", spans(api.Plain("snake_case"))},
		{"whole string bold", "**all**", spans(api.Bold("all"))},
		{"bold wins at same offset", "**a** and _b_", spans(api.Bold("a"), api.Plain(" and "), api.Italic("b"))},
		{"leftmost wins", "_a **b** c_", spans(api.Italic("a **b** c"))},
		{"no crossing newlines", "**a\nb**", spans(api.Plain("**a\nb**"))},
		{
			"multiple lines each formatted",
			"**a**\n_b_",
			spans(api.Bold("a"), api.Plain("\n"), api.Italic("b")),
		},
		{"unicode content", "**ပါရာစီတမော**", spans(api.Bold("ပါရာစီတမော"))},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatInline(tc.in))
		})
	}
}

func TestRender_Concurrent(t *testing.T) {
	in := "Intro **bold**\n\n| A | B |\n|---|---|\n| 1 | 2 |\n\n- x\n- y"
	want := Render(in)
	done := make(chan []api.Node)
	for i := 0; i < 8; i++ {
		go func() { done <- Render(in) }()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, want, <-done)
	}
}
