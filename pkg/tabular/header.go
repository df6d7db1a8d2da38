package tabular

import (
	"fmt"
	"strings"
)

// NormalizeHeader makes header names usable as column identities. Empty names
// become "Unnamed: <i>" and repeated names get ".1", ".2"... suffixes, so
// every name in the result is unique.
func NormalizeHeader(names []string) []string {
	out := make([]string, len(names))
	taken := make(map[string]bool, len(names))

	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		out[i] = name
	}

	// First occurrences keep their names; later ones are suffixed.
	for _, name := range out {
		taken[name] = true
	}
	seen := make(map[string]int, len(out))
	for i, name := range out {
		n := seen[name]
		seen[name] = n + 1
		if n == 0 {
			continue
		}
		candidate := fmt.Sprintf("%s.%d", name, n)
		for taken[candidate] {
			n++
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		seen[name] = n + 1
		taken[candidate] = true
		out[i] = candidate
	}

	return out
}

// columnIndex returns the position of name in a normalized header.
func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}
