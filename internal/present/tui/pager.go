package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57")).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Page shows content in a scrollable full-screen viewport.
func Page(title, content string) error {
	m := newPager(title, content)
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

type pager struct {
	title    string
	content  string
	viewport viewport.Model
	ready    bool
}

func newPager(title, content string) pager {
	vp := viewport.New(80, 20)
	vp.SetContent(content)
	return pager{title: title, content: content, viewport: vp}
}

func (p pager) Init() tea.Cmd { return nil }

func (p pager) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return p, tea.Quit
		}
	case tea.WindowSizeMsg:
		p.resize(msg.Width, msg.Height)
	}
	var cmd tea.Cmd
	p.viewport, cmd = p.viewport.Update(msg)
	return p, cmd
}

func (p *pager) resize(w, h int) {
	p.viewport.Width = w
	p.viewport.Height = max(3, h-2)
	if !p.ready {
		p.viewport.SetContent(p.content)
		p.ready = true
	}
}

func (p pager) View() string {
	header := titleStyle.Render(p.title)
	footer := footerStyle.Render(fmt.Sprintf("%3.f%% • ↑/↓ scroll • q to exit", p.viewport.ScrollPercent()*100))
	return header + "\n" + p.viewport.View() + "\n" + footer
}
