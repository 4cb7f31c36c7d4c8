package triage

import (
	"sort"
	"strings"

	"triage-assistant/internal/domain"
	"triage-assistant/internal/textnorm"
)

type KnowledgeBase interface {
	Entries() []domain.SymptomEntry
}

// Matcher ranks knowledge base entries by how many of their keywords occur in
// the input. It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	entries []domain.SymptomEntry
}

func NewMatcher(kb KnowledgeBase) *Matcher {
	return &Matcher{entries: kb.Entries()}
}

// Match returns every entry with at least one keyword hit, ordered by hit
// count (desc), urgency rank (asc) and declaration order.
func (m *Matcher) Match(text string) []domain.Match {
	return m.matchNormalized(textnorm.Normalize(text))
}

func (m *Matcher) matchNormalized(normalized string) []domain.Match {
	if normalized == "" {
		return nil
	}

	var matches []domain.Match
	for i := range m.entries {
		e := m.entries[i]
		var hit []string
		for _, k := range e.Keywords {
			if strings.Contains(normalized, k) {
				hit = append(hit, k)
			}
		}
		if len(hit) == 0 {
			continue
		}
		matches = append(matches, domain.Match{Entry: e.Clone(), Matched: hit, Order: i})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.Count() != b.Count() {
			return a.Count() > b.Count()
		}
		if a.Entry.UrgencyRank != b.Entry.UrgencyRank {
			return a.Entry.UrgencyRank < b.Entry.UrgencyRank
		}
		return a.Order < b.Order
	})
	return matches
}

// Classify reduces the detector and matcher output to a single tier.
func Classify(isEmergency bool, matches []domain.Match) domain.TriageResult {
	res := domain.TriageResult{Matches: matches, IsEmergency: isEmergency}
	switch {
	case isEmergency:
		res.Tier = domain.TierRed
	case len(matches) > 0:
		res.Tier = matches[0].Entry.Tier
	default:
		res.Tier = domain.TierUnclassified
	}
	return res
}
