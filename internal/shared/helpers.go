// Package shared provides small utility functions used across multiple
// packages in the depscout codebase.
package shared

import (
	"fmt"
	"sort"
	"strings"
)

// Dedup removes duplicate strings, keeping the first occurrence.
func Dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortedDedup removes duplicates and sorts the result, producing
// deterministic output regardless of input order.
func SortedDedup(values []string) []string {
	out := Dedup(values)
	sort.Strings(out)
	return out
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output string, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(output), err)
}

// EnvSnapshot extracts the named variables from an environment list,
// rendering them in a stable order for use in cache keys.
func EnvSnapshot(environ []string, names ...string) string {
	wanted := map[string]struct{}{}
	for _, n := range names {
		wanted[n] = struct{}{}
	}
	var picked []string
	for _, entry := range environ {
		key, _, ok := strings.Cut(entry, "=")
		if !ok {
			continue
		}
		if _, ok := wanted[key]; ok {
			picked = append(picked, entry)
		}
	}
	sort.Strings(picked)
	return strings.Join(picked, ";")
}
