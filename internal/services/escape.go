package services

import "strings"

const regexSpecials = `-[]{}()*+?.,\^$|#`

// EscapeRegex backslash-escapes every regex metacharacter and ASCII
// whitespace in s so it matches literally in both Go and POSIX regex
// engines.
func EscapeRegex(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if strings.ContainsRune(regexSpecials, r) || isASCIISpace(r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isASCIISpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
