package format

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/mithrel/medchat/pkg/api"
)

// PrettyOptions tunes terminal rendering. A zero Width uses the terminal width.
type PrettyOptions struct {
	Style string
	Width int
}

var (
	bannerTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("22"))
	bannerBox   = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("34")).
			Foreground(lipgloss.Color("28")).
			Padding(0, 1).
			MarginBottom(1)
)

// TerminalWidth returns the stdout width minus a margin, or fallback when
// stdout is not a terminal.
func TerminalWidth(fallback int) int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		w -= 4
		if w > 120 {
			w = 120
		}
		return w
	}
	return fallback
}

// WritePretty renders the banner as a styled callout and everything else as
// markdown through glamour.
func WritePretty(w io.Writer, nodes []api.Node, opts PrettyOptions) error {
	if opts.Style == "" {
		opts.Style = "dracula"
	}
	if opts.Width <= 0 {
		opts.Width = TerminalWidth(80)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(opts.Style),
		glamour.WithWordWrap(opts.Width),
		glamour.WithEmoji(),
	)
	if err != nil {
		return fmt.Errorf("failed to create renderer: %w", err)
	}

	var pending []api.Node
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		out, err := r.Render(Markdown(pending))
		pending = pending[:0]
		if err != nil {
			return fmt.Errorf("failed to render markdown: %w", err)
		}
		_, err = io.WriteString(w, out)
		return err
	}

	for _, n := range nodes {
		b, ok := n.(api.Banner)
		if !ok {
			pending = append(pending, n)
			continue
		}
		if err := flush(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, Callout(b, opts.Width)+"\n"); err != nil {
			return err
		}
	}
	return flush()
}

// Callout draws a banner as a bordered block.
func Callout(b api.Banner, width int) string {
	lines := []string{bannerTitle.Render("✅ " + b.Title)}
	if body := strings.TrimSpace(b.Body); body != "" {
		lines = append(lines, body)
	}
	style := bannerBox
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(strings.Join(lines, "\n"))
}
