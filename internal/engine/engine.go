package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/textvec/internal/config"
	"github.com/knowledge-engine/textvec/internal/extract"
	"github.com/knowledge-engine/textvec/internal/linguistic"
	"github.com/knowledge-engine/textvec/internal/pipeline"
	"github.com/knowledge-engine/textvec/internal/reduce"
	"github.com/knowledge-engine/textvec/internal/storage"
	"github.com/knowledge-engine/textvec/internal/vectorizer"
)

// Engine orchestrates the vectorization components.
// Every computation builds its own corpus, vocabulary and matrices; the
// engine only shares immutable collaborators and its stats.
type Engine struct {
	Config    *config.Config
	Logger    *logrus.Entry
	Storage   storage.FixtureStorage
	Toolkit   *linguistic.Toolkit
	Pipelines *pipeline.Pipelines

	mu    sync.RWMutex
	stats EngineStats
}

// EngineStats counts handled requests
type EngineStats struct {
	RequestsServed int64
	RequestsFailed int64
	StartTime      time.Time
}

func NewEngine(cfg *config.Config, logger *logrus.Entry, store storage.FixtureStorage) (*Engine, error) {
	solver, err := reduce.ParseSolver(cfg.Vectorize.Solver)
	if err != nil {
		return nil, err
	}
	reducer := reduce.New(reduce.Options{
		Solver:              solver,
		RandomizedThreshold: cfg.Vectorize.RandomizedThreshold,
		PowerIterations:     cfg.Vectorize.PowerIterations,
		Oversamples:         cfg.Vectorize.Oversamples,
	})

	toolkit, err := linguistic.NewToolkit(cfg.Linguistic.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize linguistic toolkit: %w", err)
	}

	return &Engine{
		Config:    cfg,
		Logger:    logger.WithField("component", "engine"),
		Storage:   store,
		Toolkit:   toolkit,
		Pipelines: pipeline.New(reducer),
		stats: EngineStats{
			StartTime: time.Now(),
		},
	}, nil
}

// ResolveCorpus returns the documents of a request: the named fixture when
// name is set, otherwise texts. HTML documents are converted to text.
func (e *Engine) ResolveCorpus(texts []string, name string, format extract.Format) ([]string, error) {
	if name != "" {
		fixture, err := e.Storage.Get(name)
		if err != nil {
			return nil, err
		}
		texts = fixture.Texts
	}
	return extract.Texts(texts, format)
}

// ResolveText returns text, or the text of the named fixture when name is set
func (e *Engine) ResolveText(text, name string) (string, error) {
	if name == "" {
		return text, nil
	}
	fixture, err := e.Storage.Get(name)
	if err != nil {
		return "", err
	}
	return fixture.Text, nil
}

func (e *Engine) BagOfWords(texts []string) (*vectorizer.Counts, error) {
	counts, err := vectorizer.BagOfWords(texts)
	if err != nil {
		return nil, err
	}
	e.logCorpus("bag-of-words", len(texts), counts.Vocabulary.Size(), texts)
	return counts, nil
}

func (e *Engine) Tfidf(texts []string) (*vectorizer.Weights, error) {
	weights, err := vectorizer.Tfidf(texts)
	if err != nil {
		return nil, err
	}
	e.logCorpus("tf-idf", len(texts), weights.Vocabulary.Size(), texts)
	return weights, nil
}

// LSA runs the latent semantic pipeline. The decomposition itself cannot be
// interrupted, so ctx is only checked before it starts.
func (e *Engine) LSA(ctx context.Context, texts []string, nComponents int) (*pipeline.LSAResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := e.Pipelines.LSA(texts, nComponents)
	if err != nil {
		return nil, err
	}
	e.logCorpus("lsa", len(texts), len(res.Vocabulary), texts)
	e.Logger.WithFields(logrus.Fields{
		"n_components": nComponents,
		"duration":     time.Since(start),
	}).Debug("LSA reduction completed")
	return res, nil
}

// Embeddings runs the co-occurrence embedding pipeline
func (e *Engine) Embeddings(ctx context.Context, texts []string, window, nComponents int) (*pipeline.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	res, err := e.Pipelines.Embeddings(texts, window, nComponents)
	if err != nil {
		return nil, err
	}
	e.logCorpus("word2vec", len(texts), len(res.Vocabulary), texts)
	e.Logger.WithFields(logrus.Fields{
		"window_size":  window,
		"n_components": nComponents,
		"duration":     time.Since(start),
	}).Debug("Embedding reduction completed")
	return res, nil
}

// logCorpus records corpus shape and warns when every document is empty
func (e *Engine) logCorpus(op string, docs, vocab int, texts []string) {
	log := e.Logger.WithFields(logrus.Fields{
		"op":         op,
		"documents":  docs,
		"vocabulary": vocab,
	})
	if vocab == 0 && docs > 0 {
		log.Warnf("All %d documents are empty after tokenization", len(texts))
		return
	}
	log.Debug("Corpus vectorized")
}

// RecordRequest updates the request counters
func (e *Engine) RecordRequest(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		e.stats.RequestsFailed++
		return
	}
	e.stats.RequestsServed++
}

// Stats returns a snapshot of the counters
func (e *Engine) Stats() EngineStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.stats
}
