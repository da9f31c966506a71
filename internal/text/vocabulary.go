package text

import (
	"sort"
)

// Vocabulary is the sorted set of unique terms of one corpus.
// Index maps each term to its column in every matrix built from the corpus.
type Vocabulary struct {
	Terms []string
	Index map[string]int
}

// BuildVocabulary collects the unique tokens of all documents and assigns
// indices by ascending lexicographic order.
func BuildVocabulary(docs [][]string) *Vocabulary {
	seen := make(map[string]struct{})
	for _, tokens := range docs {
		for _, token := range tokens {
			seen[token] = struct{}{}
		}
	}

	terms := make([]string, 0, len(seen))
	for term := range seen {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	index := make(map[string]int, len(terms))
	for i, term := range terms {
		index[term] = i
	}
	return &Vocabulary{Terms: terms, Index: index}
}

// Size returns the number of terms
func (v *Vocabulary) Size() int {
	return len(v.Terms)
}

// Lookup returns the column of term and whether it is known
func (v *Vocabulary) Lookup(term string) (int, bool) {
	idx, ok := v.Index[term]
	return idx, ok
}
