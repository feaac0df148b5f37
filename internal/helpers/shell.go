package helpers

import (
	"strings"

	"github.com/kballard/go-shellquote"
)

// ShellQuote quotes a single word for POSIX sh
func ShellQuote(word string) string {
	return shellquote.Join(word)
}

// ShellJoin quotes each word and joins them with spaces
func ShellJoin(words ...string) string {
	return shellquote.Join(words...)
}

// CompactNames trims entries and drops empty ones, keeping order
func CompactNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// UniqueStrings drops duplicates while keeping first-seen order
func UniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// NonEmptyLines splits output into trimmed, non-empty lines
func NonEmptyLines(output string) []string {
	var lines []string
	for _, line := range strings.Split(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
