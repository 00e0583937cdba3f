package dataset

import (
	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"
)

// Stats summarizes one build.
type Stats struct {
	Documents        int
	Sentences        int
	SkippedSentences int
	Positives        int
	Negatives        int
	MaskedPositions  int
	VocabSize        int
	OptimalLength    int
	SeqLen           int
	Length           corpus.LengthStats
}

// Warning records a sentence that was skipped because it could not be
// tokenized. Warnings never fail a build.
type Warning struct {
	Sentence int // flattened sentence index
	Document int
	Err      error
}

func (w Warning) Error() string { return w.Err.Error() }

func (w Warning) Unwrap() error { return w.Err }
