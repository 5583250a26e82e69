package resolve

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/siherrmann/graphmaker/model"
)

// Matcher decides whether a normalized candidate key refers to an already
// indexed entity. The cascade keeps the common case to two map lookups and
// only falls back to scanning for partial and fuzzy matches.
type Matcher struct {
	config model.ResolverConfig
}

func NewMatcher(config model.ResolverConfig) *Matcher {
	return &Matcher{config: config}
}

type indexedEntry struct {
	key string
	id  uuid.UUID
}

// Match runs the resolution cascade for a normalized key.
// The cascade is, first hit wins:
//  1. exact hit in the canonical name index
//  2. exact hit in the alias index
//  3. substring or acronym containment against all indexed keys,
//     preferring a hit with the requested entity type
//  4. best fuzzy score over all indexed keys not excluded by a type
//     mismatch, gated by the global floor and a stricter floor for
//     short indexed keys
//
// typeOf reports the type of an indexed entity and is used for type
// preference and exclusion.
func (m *Matcher) Match(key, acronym, entityType string, names, aliases map[string]uuid.UUID, typeOf func(uuid.UUID) string) (uuid.UUID, bool) {
	if key == "" {
		return uuid.Nil, false
	}

	if id, ok := names[key]; ok {
		return id, true
	}
	if id, ok := aliases[key]; ok {
		return id, true
	}

	entries := combinedEntries(names, aliases)

	if id, ok := m.matchSubstring(key, acronym, entityType, entries, typeOf); ok {
		return id, true
	}

	return m.matchFuzzy(key, entityType, entries, typeOf)
}

// matchSubstring scans for containment in either direction between the
// search terms (key plus acronym) and the indexed keys.
func (m *Matcher) matchSubstring(key, acronym, entityType string, entries []indexedEntry, typeOf func(uuid.UUID) string) (uuid.UUID, bool) {
	terms := []string{key}
	if acronym != "" {
		terms = append(terms, acronym)
	}

	var hits []indexedEntry
	for _, entry := range entries {
		for _, term := range terms {
			if strings.Contains(entry.key, term) || strings.Contains(term, entry.key) {
				hits = append(hits, entry)
				break
			}
		}
	}
	if len(hits) == 0 {
		return uuid.Nil, false
	}

	if entityType != "" {
		for _, hit := range hits {
			if strings.EqualFold(typeOf(hit.id), entityType) {
				return hit.id, true
			}
		}
	}
	return hits[0].id, true
}

// matchFuzzy tracks the best similarity score across all type-compatible
// indexed keys. The winner is accepted only above the global floor and
// above the short name floor when the winning indexed key is short,
// which suppresses spurious merges between short unrelated strings.
func (m *Matcher) matchFuzzy(key, entityType string, entries []indexedEntry, typeOf func(uuid.UUID) string) (uuid.UUID, bool) {
	var bestID uuid.UUID
	var bestKey string
	bestScore := 0.0
	found := false

	for _, entry := range entries {
		if entityType != "" {
			indexedType := typeOf(entry.id)
			if indexedType != "" && !strings.EqualFold(indexedType, entityType) {
				continue
			}
		}

		score := m.similarity(key, entry.key)
		if score > bestScore {
			bestScore = score
			bestID = entry.id
			bestKey = entry.key
			found = true
		}
	}

	if !found || bestScore <= m.config.MatchThreshold {
		return uuid.Nil, false
	}
	if len(bestKey) < m.config.ShortNameLength && bestScore <= m.config.ShortNameThreshold {
		return uuid.Nil, false
	}
	return bestID, true
}

// similarity is the better of edit similarity and pattern score.
func (m *Matcher) similarity(a, b string) float64 {
	editSim := editSimilarity(a, b)
	patternScore := m.patternScore(a, b)
	return max(editSim, patternScore)
}

// patternScore scores containment and in-order word overlap. Containment
// scores a fixed ContainmentScore. For multi word names the best overlap
// fraction of both directions is mapped linearly from
// (WordOverlapCutoff, 1] onto (PatternScoreFloor, PatternScoreCeiling].
func (m *Matcher) patternScore(a, b string) float64 {
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return m.config.ContainmentScore
	}

	aWords := strings.Fields(a)
	bWords := strings.Fields(b)
	if len(aWords) < 2 && len(bWords) < 2 {
		return 0
	}

	fraction := max(inOrderOverlap(aWords, bWords), inOrderOverlap(bWords, aWords))
	if fraction <= m.config.WordOverlapCutoff {
		return 0
	}

	span := 1 - m.config.WordOverlapCutoff
	scale := m.config.PatternScoreCeiling - m.config.PatternScoreFloor
	return m.config.PatternScoreFloor + (fraction-m.config.WordOverlapCutoff)/span*scale
}

// inOrderOverlap returns the fraction of words of a found, in order, as
// substrings among the words of b.
func inOrderOverlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}

	matched := 0
	next := 0
	for _, word := range a {
		for i := next; i < len(b); i++ {
			if strings.Contains(b[i], word) {
				matched++
				next = i + 1
				break
			}
		}
	}
	return float64(matched) / float64(len(a))
}

// editSimilarity is 1 - editDistance/max(len), computed over runes.
func editSimilarity(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

// editDistance is the Levenshtein distance computed with two rows.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func combinedEntries(names, aliases map[string]uuid.UUID) []indexedEntry {
	combined := make(map[string]uuid.UUID, len(names)+len(aliases))
	for key, id := range names {
		combined[key] = id
	}
	for key, id := range aliases {
		if _, ok := combined[key]; !ok {
			combined[key] = id
		}
	}

	entries := make([]indexedEntry, 0, len(combined))
	for key, id := range combined {
		entries = append(entries, indexedEntry{key: key, id: id})
	}
	// Map iteration order is random, matching must be deterministic.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].key < entries[j].key
	})
	return entries
}
