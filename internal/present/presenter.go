package present

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/mithrel/medchat/internal/present/format"
	"github.com/mithrel/medchat/internal/present/tui"
	"github.com/mithrel/medchat/internal/render"
	"github.com/mithrel/medchat/pkg/api"
)

type Mode int

const (
	ModePlain Mode = iota
	ModePretty
	ModeMarkdown
	ModeHTML
	ModeJSON
	ModeNDJSON
	ModeTUI
)

// Modes lists the accepted --output values.
var Modes = []string{"plain", "pretty", "markdown", "html", "json", "ndjson", "tui"}

type Options struct {
	Mode       Mode
	JSONIndent bool
	Headers    bool
	Style      string
	Width      int
	Title      string
}

// ParseMode parses one of Modes, case-insensitively.
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain":
		return ModePlain, true
	case "pretty":
		return ModePretty, true
	case "markdown", "md":
		return ModeMarkdown, true
	case "html":
		return ModeHTML, true
	case "json":
		return ModeJSON, true
	case "ndjson":
		return ModeNDJSON, true
	case "tui":
		return ModeTUI, true
	default:
		return ModePlain, false
	}
}

// RenderNodes writes a single rendered message.
func RenderNodes(_ context.Context, w io.Writer, nodes []api.Node, opts Options) error {
	if nodes == nil {
		nodes = []api.Node{}
	}
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSON(w, nodes, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSON(w, nodes)
	case ModeMarkdown:
		_, err := io.WriteString(w, withNewline(format.Markdown(nodes)))
		return err
	case ModeHTML:
		_, err := io.WriteString(w, format.HTML(nodes)+"\n")
		return err
	case ModePretty:
		return format.WritePretty(w, nodes, format.PrettyOptions{Style: opts.Style, Width: opts.Width})
	case ModeTUI:
		var b strings.Builder
		if err := format.WritePretty(&b, nodes, format.PrettyOptions{Style: opts.Style, Width: opts.Width}); err != nil {
			return err
		}
		title := opts.Title
		if title == "" {
			title = "medchat"
		}
		return tui.Page(title, b.String())
	default:
		return format.WritePlain(w, nodes)
	}
}

// TranscriptMessage pairs a stored message with its render tree.
type TranscriptMessage struct {
	api.Message
	Nodes []api.Node `json:"nodes"`
}

// Transcript renders bot messages and wraps user messages in one plain
// paragraph.
func Transcript(msgs []api.Message) []TranscriptMessage {
	out := make([]TranscriptMessage, 0, len(msgs))
	for _, m := range msgs {
		tm := TranscriptMessage{Message: m}
		switch {
		case m.Sender == api.SenderBot:
			tm.Nodes = render.Render(m.Content)
		case strings.TrimSpace(m.Content) != "":
			tm.Nodes = []api.Node{api.Paragraph{Spans: []api.Span{api.Plain(m.Content)}}}
		}
		if tm.Nodes == nil {
			tm.Nodes = []api.Node{}
		}
		out = append(out, tm)
	}
	return out
}

// RenderTranscript writes a whole session, one sender heading per message.
func RenderTranscript(ctx context.Context, w io.Writer, msgs []api.Message, opts Options) error {
	items := Transcript(msgs)
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSON(w, items, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSON(w, items)
	case ModeTUI:
		body, err := TranscriptText(items, opts)
		if err != nil {
			return err
		}
		title := opts.Title
		if title == "" && len(msgs) > 0 {
			title = msgs[0].SessionID
		}
		return tui.Page(title, body)
	case ModeHTML:
		var b strings.Builder
		for _, it := range items {
			b.WriteString(fmt.Sprintf("<section class=\"message %s\">%s</section>\n", html.EscapeString(string(it.Sender)), format.HTML(it.Nodes)))
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
	body, err := TranscriptText(items, opts)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, body)
	return err
}

// TranscriptText renders items for a terminal in the plain, markdown or
// pretty modes. Other modes fall back to pretty.
func TranscriptText(items []TranscriptMessage, opts Options) (string, error) {
	var b strings.Builder
	for i, it := range items {
		if i > 0 {
			b.WriteString("\n")
		}
		head := senderLabel(it.Sender) + " · " + it.CreatedAt.Local().Format("2006-01-02 15:04")
		if it.ImageURL != "" {
			head += " · [image]"
		}
		switch opts.Mode {
		case ModePlain:
			b.WriteString("[" + head + "]\n")
			if err := format.WritePlain(&b, it.Nodes); err != nil {
				return "", err
			}
		case ModeMarkdown:
			b.WriteString("### " + head + "\n\n" + withNewline(format.Markdown(it.Nodes)))
		default:
			b.WriteString(headStyle(it.Sender).Render(head) + "\n")
			if err := format.WritePretty(&b, it.Nodes, format.PrettyOptions{Style: opts.Style, Width: opts.Width}); err != nil {
				return "", err
			}
		}
	}
	return b.String(), nil
}

func senderLabel(s api.Sender) string {
	if s == api.SenderBot {
		return "Assistant"
	}
	return "Patient"
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// RenderSessions writes a session listing. TUI mode needs a Source to open
// and delete sessions.
func RenderSessions(ctx context.Context, w io.Writer, sessions []api.Session, src tui.Source, opts Options) error {
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSON(w, sessions, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSON(w, sessions)
	case ModeTUI:
		if src == nil {
			return errors.New("tui output needs an interactive terminal")
		}
		return tui.BrowseSessions(ctx, sessions, src, opts.Headers)
	default:
		return format.WritePlainSessions(w, sessions, opts.Headers)
	}
}

// RenderRecords writes consultation records.
func RenderRecords(_ context.Context, w io.Writer, recs []api.ConsultationRecord, opts Options) error {
	switch opts.Mode {
	case ModeJSON:
		return format.WriteJSON(w, recs, opts.JSONIndent)
	case ModeNDJSON:
		return format.WriteNDJSON(w, recs)
	default:
		return format.WritePlainRecords(w, recs, opts.Headers)
	}
}

// RenderRecord writes one consultation record in detail.
func RenderRecord(_ context.Context, w io.Writer, r api.ConsultationRecord, opts Options) error {
	switch opts.Mode {
	case ModeJSON, ModeNDJSON:
		return format.WriteJSON(w, r, opts.JSONIndent)
	default:
		return format.WriteRecordDetail(w, r)
	}
}
