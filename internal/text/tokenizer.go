package text

import (
	"strings"
)

// Punctuation is the fixed set of characters the tokenizer treats as separators.
const Punctuation = ".,!?;:()[]{}\"'"

var punctuationReplacer = newPunctuationReplacer()

func newPunctuationReplacer() *strings.Replacer {
	pairs := make([]string, 0, 2*len(Punctuation))
	for _, c := range Punctuation {
		pairs = append(pairs, string(c), " ")
	}
	return strings.NewReplacer(pairs...)
}

// Tokenize splits text into normalized tokens (lowercase, punctuation stripped)
func Tokenize(text string) []string {
	lowered := strings.ToLower(text)
	return strings.Fields(punctuationReplacer.Replace(lowered))
}

// TokenizeCorpus tokenizes every document, keeping corpus order
func TokenizeCorpus(texts []string) [][]string {
	docs := make([][]string, len(texts))
	for i, t := range texts {
		docs[i] = Tokenize(t)
	}
	return docs
}
