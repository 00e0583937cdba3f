package tokenizer

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/sugarme/tokenizer/normalizer"
)

// Bert is a word-level tokenizer with BERT's basic text handling: the
// sugarme BertNormalizer cleans control characters, spaces out CJK
// characters, lowercases and strips accents; the result is split on
// whitespace with every punctuation rune as its own token. No sub-word
// segmentation is applied.
type Bert struct {
	norm normalizer.Normalizer
}

func NewBert() *Bert {
	return &Bert{norm: normalizer.NewBertNormalizer(true, true, true, true)}
}

func (b *Bert) Tokenize(sentence string) ([]string, error) {
	if err := checkUTF8(sentence); err != nil {
		return nil, err
	}
	normalized, err := b.norm.Normalize(normalizer.NewNormalizedFrom(sentence))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedSentence, err)
	}
	return splitPunctuation(normalized.GetNormalized()), nil
}

func splitPunctuation(text string) []string {
	var tokens []string
	for _, word := range strings.Fields(text) {
		start := 0
		for i, r := range word {
			if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
				continue
			}
			if start < i {
				tokens = append(tokens, word[start:i])
			}
			tokens = append(tokens, string(r))
			start = i + len(string(r))
		}
		if start < len(word) {
			tokens = append(tokens, word[start:])
		}
	}
	return tokens
}
