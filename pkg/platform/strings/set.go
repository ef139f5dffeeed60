// Package strings holds small helpers for string sets such as field paths.
package strings

import (
	"slices"
	"strings"
)

// SortedSet trims each value, drops empties and returns the distinct values
// in sorted order. Two inputs naming the same paths compare equal afterwards.
// It returns nil when nothing survives.
func SortedSet(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Union merges b into a, keeping a's order and appending only values a lacks.
// It reports whether anything was added.
func Union(a, b []string) ([]string, bool) {
	grew := false
	for _, v := range b {
		if !slices.Contains(a, v) {
			a = append(a, v)
			grew = true
		}
	}
	return a, grew
}
