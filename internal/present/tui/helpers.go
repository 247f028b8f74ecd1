package tui

import (
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// searchKey is the text the filter matches a session against.
func searchKey(s api.Session) string {
	return strings.ToLower(s.ID + " " + s.Preview)
}
