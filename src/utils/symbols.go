package utils

import "strings"

// NormalizeSymbol trims surrounding whitespace and strips exactly one
// trailing underscore ("XAUUSD_" -> "XAUUSD"). Case is left untouched and
// nothing is trimmed after the underscore is removed.
// An empty result means the record must be rejected.
func NormalizeSymbol(raw string) string {
	s := strings.TrimSpace(raw)
	return strings.TrimSuffix(s, "_")
}

// NormalizeSymbols normalizes a list, dropping empties and duplicates while
// preserving first-seen order.
func NormalizeSymbols(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, r := range raw {
		s := NormalizeSymbol(r)
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
