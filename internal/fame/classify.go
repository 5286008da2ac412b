package fame

import (
	"cmp"
	"slices"
	"strings"

	"github.com/kapu/famescale/internal/domain"
)

// Keyword sets used by the default categories.
var (
	SupernaturalKeywords = []string{"supernatural", "magic", "arcane"}
	HumanKeywords        = []string{"human", "mundane", "normal"}
)

// Classify returns the records whose community contains any of keywords,
// in input order. Keyword sets are not required to be disjoint; a record can
// match several categories, or none.
func Classify(records []*domain.FameRecord, keywords []string) []*domain.FameRecord {
	normalized := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(k); k != "" {
			normalized = append(normalized, k)
		}
	}

	matched := make([]*domain.FameRecord, 0)
	for _, r := range records {
		for _, k := range normalized {
			if strings.Contains(r.Community, k) {
				matched = append(matched, r)
				break
			}
		}
	}
	return matched
}

// SortByLevelDescending returns a copy of records ordered by level, highest
// first. Equal levels keep their input order.
func SortByLevelDescending(records []*domain.FameRecord) []*domain.FameRecord {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b *domain.FameRecord) int {
		return cmp.Compare(b.Level, a.Level)
	})
	if sorted == nil {
		sorted = []*domain.FameRecord{}
	}
	return sorted
}

// BestPerCharacter maps each character to its highest-level record. On a tie
// the first record seen is kept.
func BestPerCharacter(records []*domain.FameRecord) map[string]*domain.FameRecord {
	best := make(map[string]*domain.FameRecord, len(records))
	for _, r := range records {
		if current, ok := best[r.Character]; !ok || r.Level > current.Level {
			best[r.Character] = r
		}
	}
	return best
}

// CharacterCards returns one best record per character, ordered by each
// character's first appearance in records.
func CharacterCards(records []*domain.FameRecord) []*domain.FameRecord {
	best := BestPerCharacter(records)
	cards := make([]*domain.FameRecord, 0, len(best))
	seen := make(map[string]struct{}, len(best))

	for _, r := range records {
		if _, ok := seen[r.Character]; ok {
			continue
		}
		seen[r.Character] = struct{}{}
		cards = append(cards, best[r.Character])
	}
	return cards
}

// SearchByName filters records by case-insensitive substring of the
// character name. A blank term matches everything.
func SearchByName(records []*domain.FameRecord, term string) []*domain.FameRecord {
	term = strings.ToLower(strings.TrimSpace(term))

	matched := make([]*domain.FameRecord, 0, len(records))
	for _, r := range records {
		if term == "" || strings.Contains(strings.ToLower(r.Character), term) {
			matched = append(matched, r)
		}
	}
	return matched
}

// FindCharacter returns the best record for an exact character name, falling
// back to a case-insensitive match.
func FindCharacter(records []*domain.FameRecord, name string) *domain.FameRecord {
	best := BestPerCharacter(records)
	if r, ok := best[name]; ok {
		return r
	}
	for _, r := range CharacterCards(records) {
		if strings.EqualFold(r.Character, strings.TrimSpace(name)) {
			return r
		}
	}
	return nil
}
