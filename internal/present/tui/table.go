package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mithrel/medchat/internal/util"
	"github.com/mithrel/medchat/pkg/api"
)

type viewMode int

const (
	modeList viewMode = iota
	modeFilter
	modeTranscript
)

// BrowseSessions opens an interactive table of sessions. Enter shows the
// transcript, d deletes the session and / filters by fuzzy match.
func BrowseSessions(ctx context.Context, sessions []api.Session, src Source, headers bool) error {
	m := newModel(ctx, sessions, src, headers)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type model struct {
	ctx      context.Context
	src      Source
	all      []api.Session
	visible  []int
	table    table.Model
	filter   textinput.Model
	viewport viewport.Model
	mode     viewMode
	openID   string
	headers  bool
	width    int
	height   int
	status   string
	lastDur  time.Duration
}

func newModel(ctx context.Context, sessions []api.Session, src Source, headers bool) model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "fever, session id…"
	m := model{
		ctx:      ctx,
		src:      src,
		all:      sessions,
		filter:   ti,
		viewport: viewport.New(80, 20),
		headers:  headers,
	}
	m.table = table.New(table.WithColumns(m.columnsFor(14, 40, 19)), table.WithFocused(true))
	m.applyStyles()
	m.applyFilter()
	return m
}

// applyFilter recomputes the visible rows from the filter text.
func (m *model) applyFilter() {
	keys := make([]string, len(m.all))
	for i, s := range m.all {
		keys[i] = searchKey(s)
	}
	m.visible = util.FuzzyRank(strings.ToLower(strings.TrimSpace(m.filter.Value())), keys, 0)
	m.updateRows()
}

func (m *model) updateRows() {
	rows := make([]table.Row, 0, len(m.visible))
	for _, i := range m.visible {
		s := m.all[i]
		mark := ""
		if s.Confirmed {
			mark = "✅ "
		}
		rows = append(rows, table.Row{
			s.ID,
			mark + s.Preview,
			s.LastAt.Local().Format("2006-01-02 15:04"),
		})
	}
	m.table.SetRows(rows)
	if c := m.table.Cursor(); c >= len(rows) {
		m.table.SetCursor(max(0, len(rows)-1))
	}
}

// selected returns the session under the cursor.
func (m model) selected() (api.Session, bool) {
	c := m.table.Cursor()
	if c < 0 || c >= len(m.visible) {
		return api.Session{}, false
	}
	return m.all[m.visible[c]], true
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.applyLayout()
		return m, nil
	case transcriptResultMsg:
		m.lastDur = msg.dur
		if msg.err != nil {
			m.status = fmt.Sprintf("Open failed: %v", msg.err)
			return m, nil
		}
		m.openID = msg.id
		m.viewport.SetContent(msg.body)
		m.viewport.GotoTop()
		m.mode = modeTranscript
		m.status = ""
		return m, nil
	case deleteResultMsg:
		m.lastDur = msg.dur
		if msg.err != nil {
			m.status = fmt.Sprintf("Delete failed: %v", msg.err)
			return m, nil
		}
		for i, s := range m.all {
			if s.ID == msg.id {
				m.all = append(m.all[:i], m.all[i+1:]...)
				break
			}
		}
		m.applyFilter()
		m.status = fmt.Sprintf("Deleted %s", msg.id)
		return m, nil
	case tea.KeyMsg:
		switch m.mode {
		case modeTranscript:
			switch msg.String() {
			case "q", "esc":
				m.mode = modeList
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		case modeFilter:
			switch msg.String() {
			case "enter", "esc":
				m.mode = modeList
				m.filter.Blur()
				m.table.Focus()
				return m, nil
			case "ctrl+c":
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "/":
			m.mode = modeFilter
			m.table.Blur()
			cmd := m.filter.Focus()
			return m, cmd
		case "enter":
			if s, ok := m.selected(); ok {
				m.status = fmt.Sprintf("Loading %s…", s.ID)
				return m, transcriptCmd(m.ctx, m.src, s.ID)
			}
			return m, nil
		case "d":
			if s, ok := m.selected(); ok {
				m.status = fmt.Sprintf("Deleting %s…", s.ID)
				return m, deleteCmd(m.ctx, m.src, s.ID)
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) renderFooter() string {
	left := "↑/↓ navigate • enter=open • d=delete • /=filter • q=exit"
	if m.mode == modeTranscript {
		left = fmt.Sprintf("%s • %3.f%% • esc=back", m.openID, m.viewport.ScrollPercent()*100)
	}

	var right string
	if m.status != "" {
		if m.lastDur > 0 {
			right = fmt.Sprintf("%s (%s) • ", m.status, m.lastDur.Round(time.Millisecond))
		} else {
			right = m.status + " • "
		}
	}
	right += fmt.Sprintf("%d/%d sessions ", len(m.visible), len(m.all))

	width := m.table.Width()
	space := width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 1 {
		space = 1
	}
	return left + strings.Repeat(" ", space) + right
}

func (m model) View() string {
	switch m.mode {
	case modeTranscript:
		return m.viewport.View() + "\n" + m.renderFooter() + "\n"
	case modeFilter:
		return m.table.View() + "\n" + m.filter.View() + "\n"
	}
	if len(m.all) == 0 {
		return "(no sessions)\n"
	}
	return m.table.View() + "\n" + m.renderFooter() + "\n"
}

func (m *model) applyLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := max(6, m.height-1)
	m.table.SetHeight(h)
	m.table.SetWidth(m.width)
	m.viewport.Width = m.width
	m.viewport.Height = max(3, m.height-1)

	avail := m.width - 4
	if avail < 40 {
		return
	}
	idW := 26
	if avail < idW+60 {
		idW = 12
	}
	lastW := 16
	previewW := max(12, avail-idW-lastW)
	m.table.SetColumns(m.columnsFor(idW, previewW, lastW))
}

func (m *model) applyStyles() {
	s := table.DefaultStyles()
	if m.headers {
		s.Header = s.Header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			BorderBottom(true).
			Bold(true)
	} else {
		s.Header = s.Header.
			BorderBottom(false).
			Bold(false)
	}
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	m.table.SetStyles(s)
}

// columnsFor returns columns with or without titles based on headers flag.
func (m *model) columnsFor(idW, previewW, lastW int) []table.Column {
	if m.headers {
		return []table.Column{
			{Title: "Session", Width: idW},
			{Title: "Preview", Width: previewW},
			{Title: "Last", Width: lastW},
		}
	}
	return []table.Column{
		{Title: "", Width: idW},
		{Title: "", Width: previewW},
		{Title: "", Width: lastW},
	}
}
