package store

import (
	"strings"
	"unicode"
)

// Slugify lowercases s and collapses every run of non-alphanumeric characters
// into a single hyphen. An input with no usable characters yields "item".
func Slugify(s string) string {
	var b strings.Builder
	pendingHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	if b.Len() == 0 {
		return "item"
	}
	return b.String()
}
