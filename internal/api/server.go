package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/knowledge-engine/textvec/internal/engine"
	"github.com/knowledge-engine/textvec/internal/linguistic"
	"github.com/knowledge-engine/textvec/internal/reduce"
	"github.com/knowledge-engine/textvec/internal/storage"
	"github.com/knowledge-engine/textvec/internal/vectorizer"
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *http.ServeMux
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger.WithField("component", "api"),
		Router: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/bag-of-words", s.handleBagOfWords)
	s.Router.HandleFunc("/tf-idf", s.handleTfidf)
	s.Router.HandleFunc("/lsa", s.handleLSA)
	s.Router.HandleFunc("/word2vec", s.handleWord2Vec)

	s.Router.HandleFunc("/text/tokenize", s.handleText(s.tokenize))
	s.Router.HandleFunc("/text/sent_tokenize", s.handleText(s.sentTokenize))
	s.Router.HandleFunc("/text/stopwords", s.handleText(s.stopwords))
	s.Router.HandleFunc("/text/stem", s.handleText(s.stem))
	s.Router.HandleFunc("/text/pos", s.handleText(s.pos))
	s.Router.HandleFunc("/text/ner", s.handleText(s.ner))
	s.Router.HandleFunc("/text/freq", s.handleText(s.freq))
	s.Router.HandleFunc("/text/ngrams", s.handleText(s.ngrams))
	s.Router.HandleFunc("/text/pipeline", s.handleText(s.analyze))

	s.Router.HandleFunc("/corpora", s.handleCorpora)
	s.Router.HandleFunc("/corpora/{name}", s.handleCorpus)
	s.Router.HandleFunc("/status", s.handleStatus)
}

// Handler wraps the router with request logging
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.Router.ServeHTTP(rec, r)
		s.Logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Info("Request handled")
	})
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.Engine.Config.Server
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Infof("Starting API Server on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Logger.Info("Shutting down API Server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type BagOfWordsResponse struct {
	Vocab  []string `json:"vocab"`
	Matrix [][]int  `json:"matrix"`
}

type TfidfResponse struct {
	Vocab  []string    `json:"vocab"`
	Matrix [][]float64 `json:"matrix"`
	IDF    []float64   `json:"idf"`
}

type LSAResponse struct {
	Vocab             []string    `json:"vocab"`
	DocVectors        [][]float64 `json:"doc_vectors"`
	Components        [][]float64 `json:"components"`
	ExplainedVariance []float64   `json:"explained_variance"`
}

type EmbeddingResponse struct {
	Vocab             []string    `json:"vocab"`
	Vectors           [][]float64 `json:"vectors"`
	ExplainedVariance []float64   `json:"explained_variance"`
}

type CorporaResponse struct {
	Corpora []string `json:"corpora"`
}

type StatusResponse struct {
	Uptime         string `json:"uptime"`
	RequestsServed int64  `json:"requests_served"`
	RequestsFailed int64  `json:"requests_failed"`
}

// Handlers

func (s *Server) handleBagOfWords(w http.ResponseWriter, r *http.Request) {
	var req CorpusRequest
	texts, ok := s.decodeCorpus(w, r, &req, req.Validate, &req)
	if !ok {
		return
	}

	counts, err := s.Engine.BagOfWords(texts)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, http.StatusOK, BagOfWordsResponse{
		Vocab:  counts.Vocabulary.Terms,
		Matrix: counts.Matrix,
	})
}

func (s *Server) handleTfidf(w http.ResponseWriter, r *http.Request) {
	var req CorpusRequest
	texts, ok := s.decodeCorpus(w, r, &req, req.Validate, &req)
	if !ok {
		return
	}

	weights, err := s.Engine.Tfidf(texts)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, http.StatusOK, TfidfResponse{
		Vocab:  weights.Vocabulary.Terms,
		Matrix: weights.Matrix,
		IDF:    weights.IDF,
	})
}

func (s *Server) handleLSA(w http.ResponseWriter, r *http.Request) {
	var req LSARequest
	validate := func() error { return req.Validate(s.Engine.Config.Vectorize) }
	texts, ok := s.decodeCorpus(w, r, &req, validate, &req.CorpusRequest)
	if !ok {
		return
	}

	res, err := s.Engine.LSA(r.Context(), texts, *req.NComponents)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, http.StatusOK, LSAResponse{
		Vocab:             res.Vocabulary,
		DocVectors:        res.DocVectors,
		Components:        res.Components,
		ExplainedVariance: res.ExplainedVariance,
	})
}

func (s *Server) handleWord2Vec(w http.ResponseWriter, r *http.Request) {
	var req EmbeddingRequest
	validate := func() error { return req.Validate(s.Engine.Config.Vectorize) }
	texts, ok := s.decodeCorpus(w, r, &req, validate, &req.CorpusRequest)
	if !ok {
		return
	}

	res, err := s.Engine.Embeddings(r.Context(), texts, *req.WindowSize, *req.NComponents)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, http.StatusOK, EmbeddingResponse{
		Vocab:             res.Vocabulary,
		Vectors:           res.Vectors,
		ExplainedVariance: res.ExplainedVariance,
	})
}

// textOp computes the response of one /text route
type textOp func(text string, req *TextRequest) (any, error)

func (s *Server) handleText(op textOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		var req TextRequest
		if err := s.decode(w, r, &req); err != nil {
			s.fail(w, err)
			return
		}
		if err := req.Validate(s.Engine.Config.Linguistic); err != nil {
			s.fail(w, err)
			return
		}
		text, err := s.Engine.ResolveText(req.Text, req.Corpus)
		if err != nil {
			s.fail(w, err)
			return
		}
		resp, err := op(text, &req)
		if err != nil {
			s.fail(w, err)
			return
		}
		s.ok(w, http.StatusOK, resp)
	}
}

func (s *Server) tokenize(text string, _ *TextRequest) (any, error) {
	tokens, err := s.Engine.Toolkit.WordTokens(text)
	return map[string][]string{"tokens": tokens}, err
}

func (s *Server) sentTokenize(text string, _ *TextRequest) (any, error) {
	sentences, err := s.Engine.Toolkit.Sentences(text)
	return map[string][]string{"sentences": sentences}, err
}

func (s *Server) stopwords(text string, req *TextRequest) (any, error) {
	filtered, err := s.Engine.Toolkit.RemoveStopwords(text, req.Language)
	return map[string][]string{"filtered_words": filtered}, err
}

func (s *Server) stem(text string, req *TextRequest) (any, error) {
	stems, err := s.Engine.Toolkit.Stem(text, req.Language)
	return map[string][]string{"stems": stems}, err
}

func (s *Server) pos(text string, _ *TextRequest) (any, error) {
	tags, err := s.Engine.Toolkit.POSTags(text)
	return map[string][]linguistic.TaggedToken{"pos_tags": tags}, err
}

func (s *Server) ner(text string, _ *TextRequest) (any, error) {
	entities, err := s.Engine.Toolkit.Entities(text)
	return map[string][]linguistic.Entity{"entities": entities}, err
}

func (s *Server) freq(text string, req *TextRequest) (any, error) {
	common, err := s.Engine.Toolkit.FreqDist(text, req.Language, *req.TopN)
	return map[string][]linguistic.FreqEntry{"most_common": common}, err
}

func (s *Server) ngrams(text string, req *TextRequest) (any, error) {
	grams, err := s.Engine.Toolkit.NGrams(text, *req.N)
	return map[string][][]string{"ngrams": grams}, err
}

func (s *Server) analyze(text string, _ *TextRequest) (any, error) {
	return s.Engine.Toolkit.Analyze(text)
}

func (s *Server) handleCorpora(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, err := s.Engine.Storage.List()
		if err != nil {
			s.fail(w, err)
			return
		}
		s.ok(w, http.StatusOK, CorporaResponse{Corpora: names})
	case http.MethodPost:
		var req FixtureRequest
		if err := s.decode(w, r, &req); err != nil {
			s.fail(w, err)
			return
		}
		if err := req.Validate(); err != nil {
			s.fail(w, err)
			return
		}
		fixture := &storage.Fixture{Name: req.Name, Texts: req.Texts, Text: req.Text}
		if err := s.Engine.Storage.Save(fixture); err != nil {
			s.fail(w, err)
			return
		}
		s.Logger.WithField("corpus", req.Name).Info("Corpus saved")
		s.ok(w, http.StatusCreated, fixture)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCorpus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	fixture, err := s.Engine.Storage.Get(r.PathValue("name"))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, http.StatusOK, fixture)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	stats := s.Engine.Stats()
	jsonResponse(w, http.StatusOK, StatusResponse{
		Uptime:         time.Since(stats.StartTime).Round(time.Second).String(),
		RequestsServed: stats.RequestsServed,
		RequestsFailed: stats.RequestsFailed,
	})
}

// decodeCorpus decodes and validates a corpus request and resolves its texts
func (s *Server) decodeCorpus(w http.ResponseWriter, r *http.Request, v any, validate func() error, req *CorpusRequest) ([]string, bool) {
	if !requireMethod(w, r, http.MethodPost) {
		return nil, false
	}
	if err := s.decode(w, r, v); err != nil {
		s.fail(w, err)
		return nil, false
	}
	if err := validate(); err != nil {
		s.fail(w, err)
		return nil, false
	}
	texts, err := s.Engine.ResolveCorpus(req.Texts, req.Corpus, req.format)
	if err != nil {
		s.fail(w, err)
		return nil, false
	}
	return texts, true
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.Engine.Config.Server.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		return invalid("invalid JSON: %v", err)
	}
	return nil
}

func (s *Server) ok(w http.ResponseWriter, code int, payload any) {
	s.Engine.RecordRequest(nil)
	jsonResponse(w, code, payload)
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	s.Engine.RecordRequest(err)
	code, kind := classify(err)
	log := s.Logger.WithError(err).WithField("kind", kind)
	if code >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}
	jsonResponse(w, code, ErrorResponse{Error: err.Error(), Kind: kind})
}

// classify maps an error to its HTTP status and kind
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, vectorizer.ErrEmptyCorpus):
		return http.StatusBadRequest, "empty_corpus"
	case errors.Is(err, reduce.ErrInvalidRank):
		return http.StatusBadRequest, "invalid_rank"
	case errors.Is(err, reduce.ErrInvalidMatrix):
		return http.StatusBadRequest, "invalid_matrix"
	case errors.Is(err, vectorizer.ErrInvalidWindow):
		return http.StatusBadRequest, "invalid_window"
	case errors.Is(err, linguistic.ErrUnsupportedLanguage):
		return http.StatusBadRequest, "unsupported_language"
	case errors.Is(err, linguistic.ErrInvalidNGram):
		return http.StatusBadRequest, "invalid_ngram"
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, "corpus_not_found"
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "payload_too_large"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		methodNotAllowed(w)
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	jsonResponse(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed", Kind: "method_not_allowed"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func jsonResponse(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
