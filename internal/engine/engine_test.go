package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/textvec/internal/config"
	"github.com/knowledge-engine/textvec/internal/engine"
	"github.com/knowledge-engine/textvec/internal/extract"
	"github.com/knowledge-engine/textvec/internal/reduce"
	"github.com/knowledge-engine/textvec/internal/storage"
	"github.com/knowledge-engine/textvec/internal/vectorizer"
)

// Mocks

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Save(fixture *storage.Fixture) error {
	args := m.Called(fixture)
	return args.Error(0)
}

func (m *MockStorage) Get(name string) (*storage.Fixture, error) {
	args := m.Called(name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Fixture), args.Error(1)
}

func (m *MockStorage) List() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

func setupEngine(t *testing.T) (*engine.Engine, *MockStorage, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	store := new(MockStorage)

	eng, err := engine.NewEngine(config.Default(), logger.WithField("test", "engine"), store)
	require.NoError(t, err)
	return eng, store, hook
}

func TestNewEngine(t *testing.T) {
	eng, _, _ := setupEngine(t)
	assert.NotNil(t, eng.Toolkit)
	assert.NotNil(t, eng.Pipelines)
	assert.Equal(t, "english", eng.Toolkit.DefaultLanguage())
	assert.False(t, eng.Stats().StartTime.IsZero())
}

func TestNewEngine_InvalidConfig(t *testing.T) {
	logger := logrus.New().WithField("test", "engine")

	cfg := config.Default()
	cfg.Vectorize.Solver = "qr"
	_, err := engine.NewEngine(cfg, logger, new(MockStorage))
	assert.Error(t, err)

	cfg = config.Default()
	cfg.Linguistic.Language = "klingon"
	_, err = engine.NewEngine(cfg, logger, new(MockStorage))
	assert.Error(t, err)
}

func TestEngine_BagOfWords(t *testing.T) {
	eng, _, _ := setupEngine(t)

	counts, err := eng.BagOfWords([]string{"the cat", "the dog"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog", "the"}, counts.Vocabulary.Terms)
	assert.Equal(t, [][]int{{1, 0, 1}, {0, 1, 1}}, counts.Matrix)
}

func TestEngine_EmptyDocumentsWarn(t *testing.T) {
	eng, _, hook := setupEngine(t)

	weights, err := eng.Tfidf([]string{"", "!!!"})
	require.NoError(t, err)
	assert.Empty(t, weights.Vocabulary.Terms)
	assert.Len(t, weights.Matrix, 2)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
}

func TestEngine_LSA(t *testing.T) {
	eng, _, _ := setupEngine(t)

	res, err := eng.LSA(context.Background(), []string{"apple banana", "banana cherry", "cherry apple"}, 2)
	require.NoError(t, err)
	assert.Len(t, res.DocVectors, 3)
	assert.Len(t, res.Components, 2)
	assert.Len(t, res.ExplainedVariance, 2)
}

func TestEngine_LSA_CancelledContext(t *testing.T) {
	eng, _, _ := setupEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.LSA(ctx, []string{"a b"}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngine_Embeddings(t *testing.T) {
	eng, _, _ := setupEngine(t)

	res, err := eng.Embeddings(context.Background(), []string{"a b c"}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Vocabulary)
	assert.Len(t, res.Vectors, 3)

	_, err = eng.Embeddings(context.Background(), []string{"a b c"}, 0, 2)
	assert.ErrorIs(t, err, vectorizer.ErrInvalidWindow)

	_, err = eng.Embeddings(context.Background(), []string{"a b c"}, 1, 4)
	assert.ErrorIs(t, err, reduce.ErrInvalidRank)
}

func TestEngine_ResolveCorpus(t *testing.T) {
	eng, store, _ := setupEngine(t)

	store.On("Get", "animals").Return(&storage.Fixture{Name: "animals", Texts: []string{"cat", "dog"}}, nil)
	store.On("Get", "missing").Return(nil, storage.ErrNotFound)

	texts, err := eng.ResolveCorpus(nil, "animals", extract.FormatText)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat", "dog"}, texts)

	_, err = eng.ResolveCorpus(nil, "missing", extract.FormatText)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	texts, err = eng.ResolveCorpus([]string{"<p>Hello <b>world</b></p>"}, "", extract.FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello world"}, texts)

	store.AssertExpectations(t)
}

func TestEngine_ResolveText(t *testing.T) {
	eng, store, _ := setupEngine(t)

	store.On("Get", "speech").Return(&storage.Fixture{Name: "speech", Text: "Hello there."}, nil)

	text, err := eng.ResolveText("inline", "")
	require.NoError(t, err)
	assert.Equal(t, "inline", text)

	text, err = eng.ResolveText("", "speech")
	require.NoError(t, err)
	assert.Equal(t, "Hello there.", text)
}

func TestEngine_RecordRequest(t *testing.T) {
	eng, _, _ := setupEngine(t)

	eng.RecordRequest(nil)
	eng.RecordRequest(nil)
	eng.RecordRequest(errors.New("boom"))

	stats := eng.Stats()
	assert.Equal(t, int64(2), stats.RequestsServed)
	assert.Equal(t, int64(1), stats.RequestsFailed)
}
