// Package strings normalizes the host name lists read from configuration.
package strings

import (
	"strings"
)

// HostList trims and lowercases each entry, then drops blanks and repeats.
// Order is preserved.
//
//	HostList([]string{" NS1.sedoparking.com", "ns1.sedoparking.com", ""})
//	// []string{"ns1.sedoparking.com"}
func HostList(values []string) []string {
	return dedupe(values, func(v string) string {
		return strings.ToLower(strings.TrimSpace(v))
	})
}

// SuffixList is HostList for TLD suffixes: every entry gets exactly one
// leading dot, so "shop" and ".SHOP" collapse into ".shop".
func SuffixList(values []string) []string {
	return dedupe(values, func(v string) string {
		v = strings.TrimLeft(strings.ToLower(strings.TrimSpace(v)), ".")
		if v == "" {
			return ""
		}
		return "." + v
	})
}

func dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
