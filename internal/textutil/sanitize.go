package textutil

import (
	"strings"
	"unicode"
)

// FileToken maps a collection name to a token usable as a single path
// element. Case is preserved so distinct collections keep distinct tokens.
// Runs of characters outside letters, digits, '-', '_' and '.' collapse to
// one underscore. Leading dots and underscores are dropped so the token
// never names a hidden file or a parent directory. Empty results become
// "collection".
func FileToken(name string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_', r == '.':
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		default:
			pendingSep = true
		}
	}
	token := strings.TrimLeft(b.String(), "._")
	if token == "" {
		return "collection"
	}
	return token
}
