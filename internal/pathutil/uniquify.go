package pathutil

import (
	"fmt"
	"os"
	"slices"
)

// UniquifyString returns s unchanged if it does not occur in existing,
// otherwise s with " (1)", " (2)", ... inserted at position until the
// result is unique. A nil position inserts at the end.
func UniquifyString(s string, existing []string, position *int) string {
	return UniquifyStringFunc(s, func(candidate string) bool {
		return !slices.Contains(existing, candidate)
	}, position)
}

// UniquifyFilepath returns path unchanged if no file exists at that
// path, otherwise path with " (1)", " (2)", ... inserted at position
// until no file exists at the resulting path.
func UniquifyFilepath(path string, position *int) string {
	return UniquifyStringFunc(path, func(candidate string) bool {
		_, err := os.Stat(candidate)
		return err != nil
	}, position)
}

// UniquifyStringFunc returns s unchanged if isUnique reports true for
// it, otherwise s with " (1)", " (2)", ... inserted at position until
// isUnique reports true. A nil position inserts at the end.
func UniquifyStringFunc(s string, isUnique func(string) bool, position *int) string {
	if isUnique(s) {
		return s
	}

	insertAt := len(s)
	if position != nil {
		insertAt = *position
		if insertAt < 0 {
			insertAt = max(len(s)+insertAt, 0)
		}
		if insertAt > len(s) {
			insertAt = len(s)
		}
	}

	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", s[:insertAt], i, s[insertAt:])
		if isUnique(candidate) {
			return candidate
		}
	}
}
