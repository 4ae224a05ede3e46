package models

import (
	"strings"
)

// MatchPolicy decides whether a required document name counts as present in a file listing.
// Both policies compare case-insensitively.
type MatchPolicy string

const (
	MatchPolicySubstring MatchPolicy = "substring"
	MatchPolicyExact     MatchPolicy = "exact"
)

// ParseMatchPolicy falls back to substring for empty or unknown names.
func ParseMatchPolicy(raw string) MatchPolicy {
	if MatchPolicy(strings.ToLower(strings.TrimSpace(raw))) == MatchPolicyExact {
		return MatchPolicyExact
	}
	return MatchPolicySubstring
}

// Matcher lowercases the listing once and returns a presence test for document names.
func (p MatchPolicy) Matcher(files []string) func(doc string) bool {
	lowered := make([]string, 0, len(files))
	exact := make(map[string]struct{}, len(files))
	for _, f := range files {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "" {
			continue
		}
		lowered = append(lowered, f)
		exact[f] = struct{}{}
	}
	return func(doc string) bool {
		doc = strings.ToLower(strings.TrimSpace(doc))
		if doc == "" {
			return false
		}
		if _, ok := exact[doc]; ok {
			return true
		}
		if p == MatchPolicyExact {
			return false
		}
		for _, f := range lowered {
			if strings.Contains(f, doc) {
				return true
			}
		}
		return false
	}
}
