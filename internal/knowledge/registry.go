// Package knowledge holds the curated symptom knowledge base. The data ships
// inside the binary and is validated once at start-up; a Base never changes
// after Load returns, so readers need no locking.
package knowledge

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"triage-assistant/internal/domain"
	"triage-assistant/internal/textnorm"
)

var ErrInvalidBase = errors.New("invalid knowledge base")

//go:embed knowledge.yaml
var embedded []byte

type document struct {
	Entries []domain.SymptomEntry `yaml:"entries"`
}

type Base struct {
	entries []domain.SymptomEntry
	byID    map[string]int
}

// Load decodes and validates the embedded knowledge base.
func Load() (*Base, error) {
	return Parse(embedded)
}

// Parse decodes a YAML document with a top-level "entries" list.
func Parse(data []byte) (*Base, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidBase, err)
	}
	return New(doc.Entries)
}

// New validates entries and builds a Base. Keywords are normalised and
// deduplicated; the caller's slice is not retained.
func New(entries []domain.SymptomEntry) (*Base, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no entries", ErrInvalidBase)
	}

	b := &Base{
		entries: make([]domain.SymptomEntry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidBase, i)
		}
		if _, dup := b.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidBase, e.ID)
		}
		if !e.Tier.Valid() {
			return nil, fmt.Errorf("%w: entry %q has invalid tier %q", ErrInvalidBase, e.ID, e.Tier)
		}
		if e.UrgencyRank < 1 {
			return nil, fmt.Errorf("%w: entry %q has rank %d", ErrInvalidBase, e.ID, e.UrgencyRank)
		}

		e.Keywords = normalizeKeywords(e.Keywords)
		if len(e.Keywords) == 0 {
			return nil, fmt.Errorf("%w: entry %q has no keywords", ErrInvalidBase, e.ID)
		}
		e.FollowUpQuestions = append([]string(nil), e.FollowUpQuestions...)

		b.byID[e.ID] = len(b.entries)
		b.entries = append(b.entries, e)
	}

	if err := checkTierOrder(b.entries); err != nil {
		return nil, err
	}
	return b, nil
}

// Entries returns the entries in declaration order. The slice must be
// treated as read-only.
func (b *Base) Entries() []domain.SymptomEntry {
	return b.entries[:len(b.entries):len(b.entries)]
}

// Lookup returns a copy of the entry with the given id.
func (b *Base) Lookup(id string) (domain.SymptomEntry, bool) {
	i, ok := b.byID[id]
	if !ok {
		return domain.SymptomEntry{}, false
	}
	return b.entries[i].Clone(), true
}

func (b *Base) Len() int {
	return len(b.entries)
}

func normalizeKeywords(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		k = textnorm.Normalize(k)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// checkTierOrder enforces that every red rank sorts before every orange rank
// and every orange rank before every green rank.
func checkTierOrder(entries []domain.SymptomEntry) error {
	type bounds struct {
		min, max int
		seen     bool
	}
	ranks := map[domain.Tier]*bounds{
		domain.TierRed:    {},
		domain.TierOrange: {},
		domain.TierGreen:  {},
	}
	for _, e := range entries {
		r := ranks[e.Tier]
		if !r.seen {
			r.min, r.max, r.seen = e.UrgencyRank, e.UrgencyRank, true
			continue
		}
		r.min = min(r.min, e.UrgencyRank)
		r.max = max(r.max, e.UrgencyRank)
	}

	order := []domain.Tier{domain.TierRed, domain.TierOrange, domain.TierGreen}
	for i := 0; i < len(order); i++ {
		lo := ranks[order[i]]
		if !lo.seen {
			continue
		}
		for _, next := range order[i+1:] {
			hi := ranks[next]
			if hi.seen && lo.max >= hi.min {
				return fmt.Errorf("%w: %s rank %d is not below %s rank %d",
					ErrInvalidBase, order[i], lo.max, next, hi.min)
			}
		}
	}
	return nil
}
