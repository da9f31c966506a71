package vectorizer

import (
	"math"

	"github.com/knowledge-engine/textvec/internal/text"
)

// Weights holds a document-term TF-IDF matrix and the idf of every term
type Weights struct {
	Vocabulary *text.Vocabulary
	Matrix     [][]float64
	IDF        []float64
}

// Tfidf tokenizes texts and returns their TF-IDF matrix
func Tfidf(texts []string) (*Weights, error) {
	corpus, err := NewCorpus(texts)
	if err != nil {
		return nil, err
	}
	matrix, idf := corpus.TfidfMatrix()
	return &Weights{
		Vocabulary: corpus.Vocabulary,
		Matrix:     matrix,
		IDF:        idf,
	}, nil
}

// SmoothIDF returns ln((n+1)/(df+1)) + 1
func SmoothIDF(n, df int) float64 {
	return math.Log(float64(n+1)/float64(df+1)) + 1
}

// TfidfMatrix computes tf(t,d) * idf(t) for every document and term.
// A document without tokens yields an all-zero row.
func (c *Corpus) TfidfMatrix() ([][]float64, []float64) {
	size := c.Vocabulary.Size()
	counts := c.CountMatrix()

	df := make([]int, size)
	tf := make([][]float64, len(counts))
	for i, row := range counts {
		total := len(c.Docs[i])
		if total == 0 {
			total = 1
		}
		tf[i] = make([]float64, size)
		for j, count := range row {
			if count == 0 {
				continue
			}
			tf[i][j] = float64(count) / float64(total)
			df[j]++
		}
	}

	idf := make([]float64, size)
	for j := range idf {
		idf[j] = SmoothIDF(len(c.Docs), df[j])
	}

	for i := range tf {
		for j := range tf[i] {
			tf[i][j] *= idf[j]
		}
	}
	return tf, idf
}
