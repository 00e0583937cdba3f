package dataset

import (
	"fmt"
	"slices"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/masking"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"
)

// Dataset is an immutable, indexable collection of examples together with
// the vocabulary they were encoded with. It is safe for concurrent reads.
type Dataset struct {
	vocab         *vocab.Vocabulary
	examples      []Example
	optimalLength int
	seqLen        int
	includeText   bool
	stats         Stats
	warnings      []Warning
	index         *Index
}

func newDataset(v *vocab.Vocabulary, examples []Example, optimalLength int, includeText bool, stats Stats, warnings []Warning) *Dataset {
	return &Dataset{
		vocab:         v,
		examples:      examples,
		optimalLength: optimalLength,
		seqLen:        masking.SeqLen(optimalLength),
		includeText:   includeText,
		stats:         stats,
		warnings:      warnings,
		index:         newIndex(examples),
	}
}

// Restore rebuilds a dataset from persisted parts. Every example must have
// sequences of length 2*optimalLength+3 whose indices fall inside v.
func Restore(v *vocab.Vocabulary, examples []Example, optimalLength int, includeText bool, stats Stats) (*Dataset, error) {
	if v == nil {
		return nil, common.VocabError("restore", "vocabulary is required")
	}
	if optimalLength < 1 {
		return nil, common.ConfigError("optimal_length", "must be >= 1, got %d", optimalLength)
	}
	seqLen := masking.SeqLen(optimalLength)
	for i, ex := range examples {
		if len(ex.MaskedIndices) != seqLen || len(ex.Target) != seqLen || len(ex.TokenMask) != seqLen {
			return nil, fmt.Errorf("%w: example %d: sequence length mismatch, want %d", common.ErrData, i, seqLen)
		}
		for _, idx := range ex.Target {
			if idx < 0 || idx >= v.Size() {
				return nil, fmt.Errorf("%w: example %d: index %d outside vocabulary of %d", common.ErrData, i, idx, v.Size())
			}
		}
	}
	stats.VocabSize = v.Size()
	stats.OptimalLength = optimalLength
	stats.SeqLen = seqLen
	stats.Positives, stats.Negatives, stats.MaskedPositions = 0, 0, 0
	for _, ex := range examples {
		if ex.IsNext {
			stats.Positives++
		} else {
			stats.Negatives++
		}
		stats.MaskedPositions += ex.NumMasked()
	}
	return newDataset(v, slices.Clone(examples), optimalLength, includeText, stats, nil), nil
}

// Size is the number of examples.
func (d *Dataset) Size() int { return len(d.examples) }

// Get returns a copy of example i.
func (d *Dataset) Get(i int) (Example, error) {
	if i < 0 || i >= len(d.examples) {
		return Example{}, fmt.Errorf("%w: %d not in [0, %d)", common.ErrIndexOutOfRange, i, len(d.examples))
	}
	return d.examples[i].clone(), nil
}

// Vocabulary is the frozen vocabulary the examples were encoded with.
func (d *Dataset) Vocabulary() *vocab.Vocabulary { return d.vocab }

// OptimalLength is the per-segment token budget.
func (d *Dataset) OptimalLength() int { return d.optimalLength }

// SeqLen is the length of every example sequence.
func (d *Dataset) SeqLen() int { return d.seqLen }

// IncludeText reports whether examples carry their text columns.
func (d *Dataset) IncludeText() bool { return d.includeText }

// Stats summarizes the build that produced the dataset.
func (d *Dataset) Stats() Stats { return d.stats }

// Warnings lists the sentences skipped during the build.
func (d *Dataset) Warnings() []Warning { return slices.Clone(d.warnings) }

// Index exposes example ids by label and by originating document.
func (d *Dataset) Index() *Index { return d.index }

// Each calls fn for every example in order until fn returns false. The
// example passed to fn must not be modified.
func (d *Dataset) Each(fn func(i int, ex Example) bool) {
	for i, ex := range d.examples {
		if !fn(i, ex) {
			return
		}
	}
}
