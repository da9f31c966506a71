package api

import (
	"errors"
	"fmt"

	"github.com/knowledge-engine/textvec/internal/config"
	"github.com/knowledge-engine/textvec/internal/extract"
	"github.com/knowledge-engine/textvec/internal/storage"
)

// ErrInvalidRequest is returned for payloads that do not match their route
var ErrInvalidRequest = errors.New("invalid request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// CorpusRequest selects a corpus either inline or by fixture name
type CorpusRequest struct {
	Texts  []string `json:"texts"`
	Corpus string   `json:"corpus,omitempty"`
	Format string   `json:"format,omitempty"`

	format extract.Format
}

// Validate checks the variant. An empty texts list is left for the
// vectorizer to reject as an empty corpus.
func (r *CorpusRequest) Validate() error {
	if r.Corpus != "" && len(r.Texts) > 0 {
		return invalid("texts and corpus are mutually exclusive")
	}
	if r.Corpus != "" {
		if err := storage.ValidateName(r.Corpus); err != nil {
			return invalid("%v", err)
		}
	}
	format, err := extract.ParseFormat(r.Format)
	if err != nil {
		return invalid("%v", err)
	}
	r.format = format
	return nil
}

// LSARequest adds the number of latent components
type LSARequest struct {
	CorpusRequest
	NComponents *int `json:"n_components,omitempty"`
}

func (r *LSARequest) Validate(defaults config.VectorizeConfig) error {
	if err := r.CorpusRequest.Validate(); err != nil {
		return err
	}
	if r.NComponents == nil {
		n := defaults.NComponents
		r.NComponents = &n
	}
	return nil
}

// EmbeddingRequest adds the co-occurrence window
type EmbeddingRequest struct {
	CorpusRequest
	WindowSize  *int `json:"window_size,omitempty"`
	NComponents *int `json:"n_components,omitempty"`
}

func (r *EmbeddingRequest) Validate(defaults config.VectorizeConfig) error {
	if err := r.CorpusRequest.Validate(); err != nil {
		return err
	}
	if r.WindowSize == nil {
		w := defaults.WindowSize
		r.WindowSize = &w
	}
	if r.NComponents == nil {
		n := defaults.NComponents
		r.NComponents = &n
	}
	return nil
}

// TextRequest is shared by the /text routes
type TextRequest struct {
	Text     string `json:"text"`
	Corpus   string `json:"corpus,omitempty"`
	Language string `json:"language,omitempty"`
	N        *int   `json:"n,omitempty"`
	TopN     *int   `json:"top_n,omitempty"`
}

func (r *TextRequest) Validate(defaults config.LinguisticConfig) error {
	switch {
	case r.Text != "" && r.Corpus != "":
		return invalid("text and corpus are mutually exclusive")
	case r.Text == "" && r.Corpus == "":
		return invalid("text is required")
	}
	if r.Corpus != "" {
		if err := storage.ValidateName(r.Corpus); err != nil {
			return invalid("%v", err)
		}
	}
	if r.N == nil {
		n := defaults.NGram
		r.N = &n
	}
	if r.TopN == nil {
		n := defaults.TopN
		r.TopN = &n
	}
	if *r.TopN < 1 {
		return invalid("top_n must be positive")
	}
	return nil
}

// FixtureRequest stores a named corpus or text
type FixtureRequest struct {
	Name  string   `json:"name"`
	Texts []string `json:"texts,omitempty"`
	Text  string   `json:"text,omitempty"`
}

func (r *FixtureRequest) Validate() error {
	if err := storage.ValidateName(r.Name); err != nil {
		return invalid("%v", err)
	}
	if len(r.Texts) == 0 && r.Text == "" {
		return invalid("fixture needs texts or text")
	}
	return nil
}
