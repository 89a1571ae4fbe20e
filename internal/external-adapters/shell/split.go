package shell

import "strings"

// SplitOperators splits a command line on unquoted &&, ||, ;, |, & and
// newlines. It tracks single quotes, double quotes and backslash escapes
// but no other shell grammar, so it also works on input the parser rejects.
func SplitOperators(command string) []string {
	var (
		fragments []string
		current   strings.Builder
		inSingle  bool
		inDouble  bool
		escaped   bool
	)

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			fragments = append(fragments, s)
		}
		current.Reset()
	}

	for i := 0; i < len(command); i++ {
		c := command[i]

		if escaped {
			current.WriteByte(c)
			escaped = false
			continue
		}

		switch {
		case c == '\\' && !inSingle:
			escaped = true
			current.WriteByte(c)
		case c == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteByte(c)
		case c == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteByte(c)
		case inSingle || inDouble:
			current.WriteByte(c)
		case c == ';' || c == '\n':
			flush()
		case c == '&' || c == '|':
			// && and || are consumed as one operator
			if i+1 < len(command) && command[i+1] == c {
				i++
			}
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()

	return fragments
}
