package present

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/mithrel/medchat/pkg/api"
)

var (
	botHead  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("36"))
	userHead = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

func headStyle(s api.Sender) lipgloss.Style {
	if s == api.SenderBot {
		return botHead
	}
	return userHead
}
