package stacktrace

import "strings"

// InternalPaths picks the file:line frames under internal/ out of a
// debug.Stack dump, trimmed so each starts at "internal/".
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		frame, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		if !strings.Contains(frame, ".go:") {
			continue
		}
		if i := strings.Index(frame, "/internal/"); i >= 0 {
			paths = append(paths, frame[i+1:])
		}
	}
	return paths
}
