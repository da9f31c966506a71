// Package vectorizer builds count, TF-IDF and co-occurrence matrices over a
// sorted corpus vocabulary. Every matrix column is aligned to the vocabulary
// index of the corpus it was built from.
package vectorizer

import (
	"errors"
	"fmt"

	"github.com/knowledge-engine/textvec/internal/text"
)

var (
	// ErrEmptyCorpus is returned when no documents are supplied
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrInvalidWindow is returned for a co-occurrence half-window below 1
	ErrInvalidWindow = errors.New("invalid window size")
)

// Corpus is a tokenized corpus together with its vocabulary.
// Build it once per computation and derive every matrix from it.
type Corpus struct {
	Docs       [][]string
	Vocabulary *text.Vocabulary
}

// NewCorpus tokenizes texts and builds the vocabulary
func NewCorpus(texts []string) (*Corpus, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyCorpus
	}
	docs := text.TokenizeCorpus(texts)
	return &Corpus{
		Docs:       docs,
		Vocabulary: text.BuildVocabulary(docs),
	}, nil
}

// NumDocs returns the number of documents
func (c *Corpus) NumDocs() int {
	return len(c.Docs)
}

// EmptyDocs returns how many documents produced no tokens
func (c *Corpus) EmptyDocs() int {
	n := 0
	for _, d := range c.Docs {
		if len(d) == 0 {
			n++
		}
	}
	return n
}

// Counts holds a document-term count matrix
type Counts struct {
	Vocabulary *text.Vocabulary
	Matrix     [][]int
}

// BagOfWords tokenizes texts and returns their count matrix
func BagOfWords(texts []string) (*Counts, error) {
	corpus, err := NewCorpus(texts)
	if err != nil {
		return nil, err
	}
	return &Counts{
		Vocabulary: corpus.Vocabulary,
		Matrix:     corpus.CountMatrix(),
	}, nil
}

// CountMatrix places the count of every token at its vocabulary column
func (c *Corpus) CountMatrix() [][]int {
	size := c.Vocabulary.Size()
	matrix := make([][]int, len(c.Docs))
	for i, tokens := range c.Docs {
		row := make([]int, size)
		for _, token := range tokens {
			row[c.Vocabulary.Index[token]]++
		}
		matrix[i] = row
	}
	return matrix
}

// Float64s converts an integer matrix into a float matrix of the same shape
func Float64s(m [][]int) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = float64(v)
		}
	}
	return out
}

func validateWindow(window int) error {
	if window < 1 {
		return fmt.Errorf("%w: %d, must be >= 1", ErrInvalidWindow, window)
	}
	return nil
}
