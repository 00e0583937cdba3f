package vocab

import (
	"sort"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
)

// State is the lifecycle stage of a Builder.
type State int

const (
	Accumulating State = iota
	Frozen
)

func (s State) String() string {
	if s == Frozen {
		return "frozen"
	}
	return "accumulating"
}

// Builder counts token frequencies over a corpus and freezes them into a
// Vocabulary. Counting is only allowed while accumulating; lookups are only
// available on the Vocabulary returned by Freeze.
type Builder struct {
	minFreq int
	counts  map[string]int
	order   []string // first-encounter order
	state   State
}

// NewBuilder returns an accumulating builder. minFreq below 1 is treated as 1.
func NewBuilder(minFreq int) *Builder {
	if minFreq < 1 {
		minFreq = 1
	}
	return &Builder{minFreq: minFreq, counts: make(map[string]int)}
}

// State reports the current lifecycle stage.
func (b *Builder) State() State { return b.state }

// Add counts every token of one tokenized sentence.
func (b *Builder) Add(tokens []string) error {
	if b.state == Frozen {
		return common.VocabError("add", "builder is frozen")
	}
	for _, tok := range tokens {
		if _, ok := b.counts[tok]; !ok {
			b.order = append(b.order, tok)
		}
		b.counts[tok]++
	}
	return nil
}

// Distinct is the number of distinct tokens counted so far.
func (b *Builder) Distinct() int { return len(b.order) }

// Freeze keeps tokens counted at least minFreq times, orders them by
// descending frequency with ties in encounter order, places the special
// tokens at indices 0..4 and returns the immutable result. A builder can be
// frozen once.
func (b *Builder) Freeze() (*Vocabulary, error) {
	if b.state == Frozen {
		return nil, common.VocabError("freeze", "builder is already frozen")
	}
	b.state = Frozen

	kept := make([]string, 0, len(b.order))
	for _, tok := range b.order {
		if b.counts[tok] >= b.minFreq && !IsSpecial(tok) {
			kept = append(kept, tok)
		}
	}
	// stable sort keeps encounter order among equal counts
	sort.SliceStable(kept, func(i, j int) bool {
		return b.counts[kept[i]] > b.counts[kept[j]]
	})

	tokens := make([]string, 0, NumSpecials+len(kept))
	freqs := make([]int, 0, NumSpecials+len(kept))
	for _, sp := range Specials {
		tokens = append(tokens, sp)
		freqs = append(freqs, 0)
	}
	for _, tok := range kept {
		tokens = append(tokens, tok)
		freqs = append(freqs, b.counts[tok])
	}

	b.counts = nil
	b.order = nil
	return newVocabulary(tokens, freqs), nil
}
