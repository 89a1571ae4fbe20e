package shell

import (
	"strconv"
	"strings"
)

// unescapeBare resolves backslashes outside quotes: "\x" is x, and an
// escaped newline joins lines.
func unescapeBare(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		i++
		if s[i] != '\n' {
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// unescapeDouble resolves the escapes Bash honors inside double quotes
func unescapeDouble(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 == len(s) {
			sb.WriteByte(s[i])
			continue
		}
		switch next := s[i+1]; next {
		case '$', '`', '"', '\\':
			sb.WriteByte(next)
			i++
		case '\n':
			i++
		default:
			sb.WriteByte('\\')
		}
	}
	return sb.String()
}

// unescapeANSIC decodes the body of a $'...' string
func unescapeANSIC(s string) string {
	var sb strings.Builder
	for len(s) > 0 {
		if s[0] != '\\' || len(s) == 1 {
			sb.WriteByte(s[0])
			s = s[1:]
			continue
		}
		switch s[1] {
		case 'e', 'E':
			sb.WriteByte(0x1b)
			s = s[2:]
			continue
		case '"', '?':
			sb.WriteByte(s[1])
			s = s[2:]
			continue
		}
		value, multibyte, tail, err := strconv.UnquoteChar(s, '\'')
		if err != nil {
			sb.WriteByte(s[0])
			s = s[1:]
			continue
		}
		if multibyte {
			sb.WriteRune(value)
		} else {
			sb.WriteByte(byte(value))
		}
		s = tail
	}
	return sb.String()
}
