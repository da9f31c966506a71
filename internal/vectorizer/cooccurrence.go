package vectorizer

import (
	"github.com/knowledge-engine/textvec/internal/text"
)

// Cooccurrences holds a symmetric term-term count matrix
type Cooccurrences struct {
	Vocabulary *text.Vocabulary
	Window     int
	Matrix     [][]int
}

// Cooccurrence tokenizes texts and counts term pairs within window positions
func Cooccurrence(texts []string, window int) (*Cooccurrences, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}
	corpus, err := NewCorpus(texts)
	if err != nil {
		return nil, err
	}
	matrix, err := corpus.CooccurrenceMatrix(window)
	if err != nil {
		return nil, err
	}
	return &Cooccurrences{
		Vocabulary: corpus.Vocabulary,
		Window:     window,
		Matrix:     matrix,
	}, nil
}

// CooccurrenceMatrix counts, for every token position i, each position j with
// 0 < |i-j| <= window in the same document. Every pair is visited from both
// centers so the result is symmetric.
func (c *Corpus) CooccurrenceMatrix(window int) ([][]int, error) {
	if err := validateWindow(window); err != nil {
		return nil, err
	}

	size := c.Vocabulary.Size()
	matrix := make([][]int, size)
	for i := range matrix {
		matrix[i] = make([]int, size)
	}

	for _, tokens := range c.Docs {
		indices := make([]int, len(tokens))
		for i, token := range tokens {
			indices[i] = c.Vocabulary.Index[token]
		}

		w := min(window, len(indices))
		for i, center := range indices {
			start := max(0, i-w)
			end := min(len(indices), i+w+1)
			for j := start; j < end; j++ {
				if j == i {
					continue
				}
				matrix[center][indices[j]]++
			}
		}
	}
	return matrix, nil
}
