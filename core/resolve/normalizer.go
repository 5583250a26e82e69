package resolve

import (
	"strings"
	"unicode"
)

var leadingArticles = map[string]bool{
	"the": true,
	"a":   true,
	"an":  true,
}

var corporateSuffixes = map[string]bool{
	"inc":         true,
	"llc":         true,
	"corp":        true,
	"corporation": true,
	"company":     true,
	"co":          true,
	"limited":     true,
	"ltd":         true,
	"group":       true,
	"holdings":    true,
	"gmbh":        true,
	"ag":          true,
}

var abbreviations = map[string]string{
	"dept":  "department",
	"univ":  "university",
	"assn":  "association",
	"assoc": "association",
	"natl":  "national",
	"intl":  "international",
	"dev":   "development",
	"govt":  "government",
	"tech":  "technology",
	"mgmt":  "management",
}

var stopwords = map[string]bool{
	"the":  true,
	"of":   true,
	"and":  true,
	"a":    true,
	"an":   true,
	"in":   true,
	"on":   true,
	"at":   true,
	"by":   true,
	"for":  true,
	"with": true,
}

// Normalizer maps entity display names onto index keys. Normalization is
// deterministic, never fails on empty input and is stable under
// re-normalization, so keys can safely be re-derived from keys.
type Normalizer struct {
	ExpandAbbreviations bool
	DropStopwords       bool
}

func NewNormalizer(expandAbbreviations, dropStopwords bool) *Normalizer {
	return &Normalizer{
		ExpandAbbreviations: expandAbbreviations,
		DropStopwords:       dropStopwords,
	}
}

// Normalize returns the index key for name. The single pass below can expose
// new leading articles or trailing suffixes (punctuation removal may fuse
// characters into new tokens), so the pass is repeated until the key is
// stable.
func (n *Normalizer) Normalize(name string) string {
	key := n.pass(name)
	for {
		next := n.pass(key)
		if next == key {
			return key
		}
		key = next
	}
}

// pass applies one round of lowercasing, whitespace collapsing, article and
// corporate suffix stripping, punctuation removal, abbreviation expansion
// and stopword removal.
func (n *Normalizer) pass(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	words := strings.Fields(key)

	// Articles and suffixes never strip the last remaining token. Tokens are
	// compared with surrounding punctuation trimmed so "Co." matches "co".
	for len(words) > 1 && leadingArticles[trimPunctuation(words[0])] {
		words = words[1:]
	}
	for len(words) > 1 && corporateSuffixes[trimPunctuation(words[len(words)-1])] {
		words = words[:len(words)-1]
	}

	words = strings.Fields(removePunctuation(strings.Join(words, " ")))

	if n.ExpandAbbreviations {
		for i, word := range words {
			if expanded, ok := abbreviations[word]; ok {
				words[i] = expanded
			}
		}
	}

	if n.DropStopwords {
		kept := make([]string, 0, len(words))
		for _, word := range words {
			if !stopwords[word] {
				kept = append(kept, word)
			}
		}
		// An all-stopword name keeps its pre-drop form so the key stays
		// non-empty and distinct names stay distinct.
		if len(kept) > 0 {
			words = kept
		}
	}

	return strings.Join(words, " ")
}

// Acronym returns the first-letter acronym of a multi word key, or the
// empty string for single word keys.
func (n *Normalizer) Acronym(key string) string {
	words := strings.Fields(key)
	if len(words) < 2 {
		return ""
	}

	var acronym strings.Builder
	for _, word := range words {
		for _, r := range word {
			acronym.WriteRune(r)
			break
		}
	}
	return acronym.String()
}

func trimPunctuation(word string) string {
	return strings.TrimFunc(word, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func removePunctuation(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
