package notes

import (
	"fmt"
	"strings"
)

const maxTagLength = 50

// NormalizeTags trims and lowercases names, drops blanks and duplicates, and
// keeps first-seen order.
func NormalizeTags(names []string) ([]string, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		if len([]rune(name)) > maxTagLength {
			return nil, validationError("tag_names", fmt.Sprintf("tag %q is longer than %d characters", name, maxTagLength))
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}
