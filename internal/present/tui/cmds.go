package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Source loads and mutates sessions on behalf of the browser.
type Source interface {
	// Transcript returns the session rendered for the terminal.
	Transcript(ctx context.Context, sessionID string) (string, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// transcriptResultMsg carries a rendered session back to Update.
type transcriptResultMsg struct {
	id   string
	body string
	err  error
	dur  time.Duration
}

// deleteResultMsg conveys the outcome of a delete operation back to Update.
type deleteResultMsg struct {
	id  string
	err error
	dur time.Duration
}

func transcriptCmd(ctx context.Context, src Source, id string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		body, err := src.Transcript(ctx, id)
		return transcriptResultMsg{id: id, body: body, err: err, dur: time.Since(start)}
	}
}

func deleteCmd(ctx context.Context, src Source, id string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		err := src.DeleteSession(ctx, id)
		return deleteResultMsg{id: id, err: err, dur: time.Since(start)}
	}
}
