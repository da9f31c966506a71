package pipeline

import (
	"github.com/knowledge-engine/textvec/internal/reduce"
	"github.com/knowledge-engine/textvec/internal/vectorizer"
)

// LSAResult is a latent semantic projection of a corpus
type LSAResult struct {
	Vocabulary        []string
	DocVectors        [][]float64
	Components        [][]float64
	ExplainedVariance []float64
}

// EmbeddingResult holds one reduced vector per vocabulary term
type EmbeddingResult struct {
	Vocabulary        []string
	Vectors           [][]float64
	ExplainedVariance []float64
}

// Pipelines composes the encoders with a shared Reducer
type Pipelines struct {
	Reducer *reduce.Reducer
}

// New creates pipelines backed by reducer
func New(reducer *reduce.Reducer) *Pipelines {
	return &Pipelines{Reducer: reducer}
}

// LSA reduces the TF-IDF matrix of texts to nComponents dimensions
func (p *Pipelines) LSA(texts []string, nComponents int) (*LSAResult, error) {
	corpus, err := vectorizer.NewCorpus(texts)
	if err != nil {
		return nil, err
	}
	if err := reduce.ValidateRank(corpus.NumDocs(), corpus.Vocabulary.Size(), nComponents); err != nil {
		return nil, err
	}

	matrix, _ := corpus.TfidfMatrix()
	res, err := p.Reducer.Reduce(matrix, nComponents)
	if err != nil {
		return nil, err
	}
	return &LSAResult{
		Vocabulary:        corpus.Vocabulary.Terms,
		DocVectors:        res.Vectors,
		Components:        res.Components,
		ExplainedVariance: res.ExplainedVarianceRatio,
	}, nil
}

// Embeddings reduces the windowed co-occurrence matrix of texts to
// nComponents dimensions per term
func (p *Pipelines) Embeddings(texts []string, window, nComponents int) (*EmbeddingResult, error) {
	co, err := vectorizer.Cooccurrence(texts, window)
	if err != nil {
		return nil, err
	}
	size := co.Vocabulary.Size()
	if err := reduce.ValidateRank(size, size, nComponents); err != nil {
		return nil, err
	}

	res, err := p.Reducer.Reduce(vectorizer.Float64s(co.Matrix), nComponents)
	if err != nil {
		return nil, err
	}
	return &EmbeddingResult{
		Vocabulary:        co.Vocabulary.Terms,
		Vectors:           res.Vectors,
		ExplainedVariance: res.ExplainedVarianceRatio,
	}, nil
}
