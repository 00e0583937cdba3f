package masking

import (
	"fmt"
	"math/rand"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"
)

// DefaultPercentage is the probability that an eligible position is masked.
const DefaultPercentage = 0.15

// Strategy decides what a selected position becomes in the masked sequence.
type Strategy string

const (
	// StrategyReplace overwrites every selected position with MASK.
	StrategyReplace Strategy = "replace"
	// StrategyBERT overwrites 80% of selected positions with MASK, 10% with a
	// random corpus token and leaves 10% unchanged. Opt-in only.
	StrategyBERT Strategy = "bert"
)

// ParseStrategy maps a configuration value to a Strategy; empty selects
// StrategyReplace.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyReplace, "":
		return StrategyReplace, nil
	case StrategyBERT:
		return StrategyBERT, nil
	default:
		return "", common.ConfigError("mask_strategy", "unknown strategy %q", s)
	}
}

// SeqLen is the fixed example length for an optimal sentence length:
// both segments plus CLS and two SEP.
func SeqLen(optimalLength int) int { return 2*optimalLength + 3 }

// Policy turns a tokenized sentence pair into fixed-length index sequences.
type Policy struct {
	vocab         *vocab.Vocabulary
	optimalLength int
	seqLen        int
	percentage    float64
	strategy      Strategy
}

// Result is one masked sequence pair. All slices have length SeqLen.
type Result struct {
	Masked    []int
	Target    []int
	TokenMask []bool
	// Tokens is the laid out token sequence; MaskedTokens is the same with
	// selected positions rewritten.
	Tokens       []string
	MaskedTokens []string
}

// NewPolicy validates its arguments against the frozen vocabulary.
func NewPolicy(v *vocab.Vocabulary, optimalLength int, percentage float64, strategy Strategy) (*Policy, error) {
	if v == nil {
		return nil, common.VocabError("masking", "vocabulary is not frozen")
	}
	if optimalLength < 1 {
		return nil, common.ConfigError("optimal_length", "must be >= 1, got %d", optimalLength)
	}
	if percentage < 0 || percentage > 1 {
		return nil, common.ConfigError("mask_percentage", "must be within [0, 1], got %g", percentage)
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	if strategy == "" {
		strategy = StrategyReplace
	}
	return &Policy{
		vocab:         v,
		optimalLength: optimalLength,
		seqLen:        SeqLen(optimalLength),
		percentage:    percentage,
		strategy:      strategy,
	}, nil
}

// SeqLen is the length of every sequence this policy emits.
func (p *Policy) SeqLen() int { return p.seqLen }

// Strategy is the replacement strategy in use.
func (p *Policy) Strategy() Strategy { return p.strategy }

// Layout truncates each segment to the optimal length and arranges
// [CLS] first [SEP] second [SEP], padded with PAD to SeqLen.
func (p *Policy) Layout(first, second []string) []string {
	out := make([]string, 0, p.seqLen)
	out = append(out, vocab.CLS)
	out = append(out, first[:min(len(first), p.optimalLength)]...)
	out = append(out, vocab.SEP)
	out = append(out, second[:min(len(second), p.optimalLength)]...)
	out = append(out, vocab.SEP)
	for len(out) < p.seqLen {
		out = append(out, vocab.PAD)
	}
	return out
}

// Apply lays out the pair, maps it to indices and masks it. Every position
// whose target index is a corpus token (>= vocab.NumSpecials) is selected
// independently with the policy's percentage. Random draws come from rng
// in position order.
func (p *Policy) Apply(first, second []string, rng *rand.Rand) Result {
	tokens := p.Layout(first, second)
	target := p.vocab.Encode(tokens)

	res := Result{
		Masked:       make([]int, p.seqLen),
		Target:       target,
		TokenMask:    make([]bool, p.seqLen),
		Tokens:       tokens,
		MaskedTokens: make([]string, p.seqLen),
	}
	copy(res.Masked, target)
	copy(res.MaskedTokens, tokens)

	for i, idx := range target {
		if idx < vocab.NumSpecials {
			continue
		}
		if rng.Float64() >= p.percentage {
			continue
		}
		res.TokenMask[i] = true
		replacement := p.replacement(idx, rng)
		res.Masked[i] = replacement
		if replacement != idx {
			res.MaskedTokens[i] = p.vocab.Token(replacement)
		}
	}
	return res
}

func (p *Policy) replacement(idx int, rng *rand.Rand) int {
	if p.strategy != StrategyBERT {
		return vocab.MASKIndex
	}
	switch r := rng.Float64(); {
	case r < 0.8:
		return vocab.MASKIndex
	case r < 0.9:
		corpusTokens := p.vocab.Size() - vocab.NumSpecials
		return vocab.NumSpecials + rng.Intn(corpusTokens)
	default:
		return idx
	}
}

func (p *Policy) String() string {
	return fmt.Sprintf("masking(seq_len=%d, percentage=%g, strategy=%s)", p.seqLen, p.percentage, p.strategy)
}
