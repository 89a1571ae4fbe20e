package shell

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds compatibility characters (fullwidth letters, ligatures,
// non-breaking spaces) to their canonical form and removes invisible
// characters, so fullwidth or zero-width-split names read as plain ASCII.
func Normalize(command string) string {
	command = norm.NFKC.String(command)
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			return -1
		}
		return r
	}, command)
}
