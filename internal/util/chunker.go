package util

import "strings"

// SplitWords cuts text into consecutive, non-overlapping windows of size
// words. The last window may be shorter. Joining the windows with single
// spaces reproduces the whitespace-normalized input.
func SplitWords(text string, size int) []string {
	if size <= 0 {
		size = 250
	}
	words := strings.Fields(text)
	out := make([]string, 0, len(words)/size+1)
	for i := 0; i < len(words); i += size {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}
