package policy

import "strings"

// InclusionExclusion filters (account, spaceId) pairs by line-delimited
// account[/spaceId] patterns loaded from the producer's property file
// (config.LoadLines). A bare "account" pattern matches every space for
// that account; "account/space" matches only that space.
//
// When an inclusion list is present, only matching pairs pass; an
// exclusion list (checked after inclusion) rejects matching pairs
// regardless. Absent lists impose no restriction.
type InclusionExclusion struct {
	inclusion []pattern
	exclusion []pattern
}

type pattern struct {
	account string
	spaceID string // empty means "any space for this account"
}

func parsePatterns(lines []string) []pattern {
	out := make([]pattern, 0, len(lines))
	for _, l := range lines {
		account, spaceID, _ := strings.Cut(l, "/")
		out = append(out, pattern{account: account, spaceID: spaceID})
	}
	return out
}

// New builds a filter from raw inclusion/exclusion line lists (typically
// produced by config.LoadLines).
func New(inclusionLines, exclusionLines []string) *InclusionExclusion {
	return &InclusionExclusion{
		inclusion: parsePatterns(inclusionLines),
		exclusion: parsePatterns(exclusionLines),
	}
}

func (p pattern) matches(account, spaceID string) bool {
	if p.account != account {
		return false
	}
	return p.spaceID == "" || p.spaceID == spaceID
}

// Allows reports whether the producer should expand a morsel for
// (account, spaceId).
func (ie *InclusionExclusion) Allows(account, spaceID string) bool {
	if len(ie.inclusion) > 0 {
		included := false
		for _, p := range ie.inclusion {
			if p.matches(account, spaceID) {
				included = true
				break
			}
		}
		if !included {
			return false
		}
	}
	for _, p := range ie.exclusion {
		if p.matches(account, spaceID) {
			return false
		}
	}
	return true
}
