package render

import (
	"regexp"
	"strings"

	"github.com/mithrel/medchat/pkg/api"
)

// bannerRe matches "✅ **Title** ✅" followed by a newline and a body. The
// title may not span lines; the body runs to the end of the input.
var bannerRe = regexp.MustCompile(`✅\x{FE0F}?\s*\*\*(.*?)\*\*\s*✅\x{FE0F}?\s*\n((?s:.*))`)

// detectBanner looks for the confirmation pattern anywhere in the whole
// message. A match replaces the entire message.
func detectBanner(text string) (api.Banner, bool) {
	m := bannerRe.FindStringSubmatch(text)
	if m == nil {
		return api.Banner{}, false
	}
	return api.Banner{
		Title: strings.TrimSpace(m[1]),
		Body:  strings.TrimSpace(m[2]),
	}, true
}
