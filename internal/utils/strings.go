// Package utils holds small helpers shared across packages.
package utils

import "strings"

// ParseList splits a comma-separated value into trimmed, non-empty items.
// Repeated items are kept once, in first-seen order. Returns nil when nothing remains.
func ParseList(s string) []string {
	var result []string
	seen := make(map[string]bool)
	for _, v := range strings.Split(s, ",") {
		item := strings.TrimSpace(v)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		result = append(result, item)
	}
	return result
}
