// Package linguistic wraps the third-party linguistic toolkit used by the
// text endpoints: tokenization, sentence segmentation, part-of-speech tagging
// and named entities come from prose, stems from snowball.
//
// The vectorization core never calls into this package.
package linguistic

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/jdkato/prose/v2"
	"github.com/kljensen/snowball"
)

var (
	// ErrUnsupportedLanguage is returned for languages without stemmer or stopword data
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrInvalidNGram is returned when n < 1
	ErrInvalidNGram = errors.New("invalid n-gram size")
)

const (
	English = "english"
	Russian = "russian"
)

// stemmerLanguages lists the languages snowball can stem
var stemmerLanguages = map[string]bool{
	"english":   true,
	"russian":   true,
	"spanish":   true,
	"french":    true,
	"swedish":   true,
	"norwegian": true,
	"hungarian": true,
}

// TaggedToken is a token with its part-of-speech tag
type TaggedToken struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
}

// Entity is a named entity found in text
type Entity struct {
	Entity string `json:"entity"`
	Label  string `json:"label"`
}

// FreqEntry is a token and the number of times it occurs
type FreqEntry struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Analysis summarizes a text
type Analysis struct {
	NumSentences     int         `json:"num_sentences"`
	NumWords         int         `json:"num_words"`
	NumCleanWords    int         `json:"num_clean_words"`
	TopWords         []FreqEntry `json:"top_10_words"`
	LexicalDiversity float64     `json:"lexical_diversity"`
}

// Toolkit is created once at startup and is read-only afterwards
type Toolkit struct {
	defaultLanguage string
	stopwords       map[string]map[string]struct{}
}

// NewToolkit builds the stopword tables and validates the default language
func NewToolkit(defaultLanguage string) (*Toolkit, error) {
	if defaultLanguage == "" {
		defaultLanguage = English
	}
	tk := &Toolkit{
		stopwords: map[string]map[string]struct{}{
			English: wordSet(englishStopwords),
			Russian: wordSet(russianStopwords),
		},
	}
	lang, err := tk.language(defaultLanguage)
	if err != nil {
		return nil, err
	}
	tk.defaultLanguage = lang
	return tk, nil
}

// DefaultLanguage returns the language used when a request gives none
func (tk *Toolkit) DefaultLanguage() string {
	return tk.defaultLanguage
}

func (tk *Toolkit) language(lang string) (string, error) {
	if lang == "" {
		return tk.defaultLanguage, nil
	}
	lang = strings.ToLower(lang)
	if !stemmerLanguages[lang] {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	return lang, nil
}

func (tk *Toolkit) stopwordSet(lang string) (map[string]struct{}, error) {
	lang, err := tk.language(lang)
	if err != nil {
		return nil, err
	}
	set, ok := tk.stopwords[lang]
	if !ok {
		return nil, fmt.Errorf("%w: no stopword list for %q", ErrUnsupportedLanguage, lang)
	}
	return set, nil
}

func newDocument(text string, opts ...prose.DocOpt) (*prose.Document, error) {
	base := []prose.DocOpt{
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	}
	doc, err := prose.NewDocument(text, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze text: %w", err)
	}
	return doc, nil
}

// WordTokens splits text into word and punctuation tokens
func (tk *Toolkit) WordTokens(text string) ([]string, error) {
	doc, err := newDocument(text)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, tok.Text)
	}
	return tokens, nil
}

// Sentences splits text into sentences
func (tk *Toolkit) Sentences(text string) ([]string, error) {
	doc, err := newDocument(text, prose.WithSegmentation(true))
	if err != nil {
		return nil, err
	}
	sentences := make([]string, 0, len(doc.Sentences()))
	for _, s := range doc.Sentences() {
		sentences = append(sentences, s.Text)
	}
	return sentences, nil
}

// RemoveStopwords returns the tokens whose lowercase form is not a stopword
func (tk *Toolkit) RemoveStopwords(text, lang string) ([]string, error) {
	stop, err := tk.stopwordSet(lang)
	if err != nil {
		return nil, err
	}
	tokens, err := tk.WordTokens(text)
	if err != nil {
		return nil, err
	}
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := stop[strings.ToLower(tok)]; !ok {
			filtered = append(filtered, tok)
		}
	}
	return filtered, nil
}

// Stem returns the snowball stem of every token
func (tk *Toolkit) Stem(text, lang string) ([]string, error) {
	lang, err := tk.language(lang)
	if err != nil {
		return nil, err
	}
	tokens, err := tk.WordTokens(text)
	if err != nil {
		return nil, err
	}
	return stemAll(tokens, lang), nil
}

func stemAll(tokens []string, lang string) []string {
	stems := make([]string, len(tokens))
	for i, tok := range tokens {
		stemmed, err := snowball.Stem(tok, lang, true)
		if err != nil {
			// keep the token when snowball rejects it
			stemmed = strings.ToLower(tok)
		}
		stems[i] = stemmed
	}
	return stems
}

// POSTags tags every token with its Penn Treebank part of speech
func (tk *Toolkit) POSTags(text string) ([]TaggedToken, error) {
	doc, err := newDocument(text, prose.WithTagging(true))
	if err != nil {
		return nil, err
	}
	tags := make([]TaggedToken, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tags = append(tags, TaggedToken{Token: tok.Text, Tag: tok.Tag})
	}
	return tags, nil
}

// Entities extracts named entities
func (tk *Toolkit) Entities(text string) ([]Entity, error) {
	doc, err := newDocument(text, prose.WithTagging(true), prose.WithExtraction(true))
	if err != nil {
		return nil, err
	}
	entities := make([]Entity, 0, len(doc.Entities()))
	for _, ent := range doc.Entities() {
		entities = append(entities, Entity{Entity: ent.Text, Label: ent.Label})
	}
	return entities, nil
}

// FreqDist counts the non-stopword word tokens of text and returns the topN
// most common, ties ordered by token
func (tk *Toolkit) FreqDist(text, lang string, topN int) ([]FreqEntry, error) {
	tokens, err := tk.RemoveStopwords(text, lang)
	if err != nil {
		return nil, err
	}
	return mostCommon(wordsOnly(tokens), topN), nil
}

// NGrams returns every run of n consecutive tokens
func (tk *Toolkit) NGrams(text string, n int) ([][]string, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidNGram, n)
	}
	tokens, err := tk.WordTokens(text)
	if err != nil {
		return nil, err
	}
	grams := make([][]string, 0, max(0, len(tokens)-n+1))
	for i := 0; i+n <= len(tokens); i++ {
		gram := make([]string, n)
		copy(gram, tokens[i:i+n])
		grams = append(grams, gram)
	}
	return grams, nil
}

// Analyze counts sentences and words and ranks the stems of the clean words:
// lowercase tokens that are neither stopwords nor punctuation.
func (tk *Toolkit) Analyze(text string) (*Analysis, error) {
	sentences, err := tk.Sentences(text)
	if err != nil {
		return nil, err
	}
	words, err := tk.WordTokens(text)
	if err != nil {
		return nil, err
	}
	stop := tk.stopwords[English]

	var clean []string
	for _, w := range wordsOnly(words) {
		lower := strings.ToLower(w)
		if _, ok := stop[lower]; ok {
			continue
		}
		clean = append(clean, lower)
	}
	stems := stemAll(clean, English)

	diversity := 0.0
	if len(stems) > 0 {
		unique := make(map[string]struct{}, len(stems))
		for _, s := range stems {
			unique[s] = struct{}{}
		}
		diversity = float64(len(unique)) / float64(len(stems))
	}

	return &Analysis{
		NumSentences:     len(sentences),
		NumWords:         len(words),
		NumCleanWords:    len(clean),
		TopWords:         mostCommon(stems, 10),
		LexicalDiversity: diversity,
	}, nil
}

// wordsOnly drops tokens without any letter or digit
func wordsOnly(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if strings.IndexFunc(tok, func(r rune) bool {
			return unicode.IsLetter(r) || unicode.IsNumber(r)
		}) >= 0 {
			out = append(out, tok)
		}
	}
	return out
}

func mostCommon(tokens []string, topN int) []FreqEntry {
	counts := make(map[string]int)
	for _, tok := range tokens {
		counts[tok]++
	}
	entries := make([]FreqEntry, 0, len(counts))
	for tok, c := range counts {
		entries = append(entries, FreqEntry{Token: tok, Count: c})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Token < entries[j].Token
	})
	if topN > 0 && len(entries) > topN {
		entries = entries[:topN]
	}
	return entries
}
