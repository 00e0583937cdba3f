package vocab

import (
	"slices"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/armon/go-radix"
)

// Special tokens and their fixed indices.
const (
	CLS  = "[CLS]"
	PAD  = "[PAD]"
	MASK = "[MASK]"
	SEP  = "[SEP]"
	UNK  = "[UNK]"

	CLSIndex  = 0
	PADIndex  = 1
	MASKIndex = 2
	SEPIndex  = 3
	UNKIndex  = 4

	// NumSpecials is the number of reserved indices; corpus tokens start here.
	NumSpecials = 5

	// DefaultMinFreq is the default minimum corpus frequency of a token.
	DefaultMinFreq = 2
)

// Specials lists the special tokens in index order.
var Specials = [NumSpecials]string{CLS, PAD, MASK, SEP, UNK}

// IsSpecial reports whether token is one of the reserved symbols.
func IsSpecial(token string) bool {
	return slices.Contains(Specials[:], token)
}

// Vocabulary is a frozen, bidirectional token/index mapping. It has no
// mutating methods; it is only produced by Builder.Freeze or Restore.
type Vocabulary struct {
	index  *radix.Tree // token -> int
	tokens []string    // index -> token
	freqs  []int       // index -> corpus frequency (0 for specials)
}

func newVocabulary(tokens []string, freqs []int) *Vocabulary {
	tree := radix.New()
	for i, tok := range tokens {
		tree.Insert(tok, i)
	}
	return &Vocabulary{index: tree, tokens: tokens, freqs: freqs}
}

// Restore rebuilds a frozen vocabulary from its ordered tokens and
// frequencies, as persisted by a snapshot. The special tokens must occupy
// their fixed indices and no token may repeat.
func Restore(tokens []string, freqs []int) (*Vocabulary, error) {
	if len(tokens) < NumSpecials {
		return nil, common.VocabError("restore", "%d tokens is fewer than the %d special tokens", len(tokens), NumSpecials)
	}
	if len(freqs) != len(tokens) {
		return nil, common.VocabError("restore", "%d frequencies for %d tokens", len(freqs), len(tokens))
	}
	for i, sp := range Specials {
		if tokens[i] != sp {
			return nil, common.VocabError("restore", "index %d holds %q, want %q", i, tokens[i], sp)
		}
	}
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			return nil, common.VocabError("restore", "duplicate token %q", tok)
		}
		seen[tok] = struct{}{}
	}
	return newVocabulary(slices.Clone(tokens), slices.Clone(freqs)), nil
}

// Size is the number of entries including the special tokens.
func (v *Vocabulary) Size() int { return len(v.tokens) }

// Index returns the index of token, or UNKIndex if it is absent.
func (v *Vocabulary) Index(token string) int {
	if i, ok := v.index.Get(token); ok {
		return i.(int)
	}
	return UNKIndex
}

// Contains reports whether token has its own entry.
func (v *Vocabulary) Contains(token string) bool {
	_, ok := v.index.Get(token)
	return ok
}

// Token returns the token at index i, or UNK if i is out of range.
func (v *Vocabulary) Token(i int) string {
	if i < 0 || i >= len(v.tokens) {
		return UNK
	}
	return v.tokens[i]
}

// Frequency is the corpus count recorded for token; 0 for specials and
// absent tokens.
func (v *Vocabulary) Frequency(token string) int {
	if i, ok := v.index.Get(token); ok {
		return v.freqs[i.(int)]
	}
	return 0
}

// Encode maps tokens to indices, with UNKIndex for absent tokens.
func (v *Vocabulary) Encode(tokens []string) []int {
	out := make([]int, len(tokens))
	for i, tok := range tokens {
		out[i] = v.Index(tok)
	}
	return out
}

// Decode maps indices back to tokens.
func (v *Vocabulary) Decode(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = v.Token(idx)
	}
	return out
}

// Tokens returns a copy of all tokens in index order.
func (v *Vocabulary) Tokens() []string { return slices.Clone(v.tokens) }

// Frequencies returns a copy of all frequencies in index order.
func (v *Vocabulary) Frequencies() []int { return slices.Clone(v.freqs) }

// WithPrefix returns every token starting with prefix, in lexical order.
func (v *Vocabulary) WithPrefix(prefix string) []string {
	var out []string
	v.index.WalkPrefix(prefix, func(key string, _ interface{}) bool {
		out = append(out, key)
		return false
	})
	return out
}
