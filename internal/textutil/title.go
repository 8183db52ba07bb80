package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplayTitle normalizes a catalogue title for display: whitespace runs are
// collapsed and all-lowercase or all-uppercase titles are title-cased. Mixed
// case titles are kept as written.
func DisplayTitle(title string) string {
	title = strings.Join(strings.Fields(title), " ")
	if title == "" {
		return ""
	}
	if title != strings.ToLower(title) && title != strings.ToUpper(title) {
		return title
	}
	return cases.Title(language.Und).String(title)
}
