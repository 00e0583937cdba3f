package nsp

import (
	"math/rand"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"

	roaring "github.com/RoaringBitmap/roaring"
)

// DefaultMaxRetries bounds the candidate draws for one negative pair.
const DefaultMaxRetries = 100

// Pair references two sentences of a SentenceTable by flattened index.
type Pair struct {
	First    int
	Second   int
	IsNext   bool
	Document int // document whose adjacent pair triggered this pair
}

// Sampler generates positive and negative sentence pairs. Positives are
// truly adjacent sentences of one document; negatives are drawn uniformly
// from the whole flattened corpus, so they may cross document boundaries.
type Sampler struct {
	table      *corpus.SentenceTable
	rng        *rand.Rand
	maxRetries int
	excluded   *roaring.Bitmap
}

// NewSampler draws all randomness from rng. maxRetries below 1 selects
// DefaultMaxRetries.
func NewSampler(table *corpus.SentenceTable, rng *rand.Rand, maxRetries int) *Sampler {
	if maxRetries < 1 {
		maxRetries = DefaultMaxRetries
	}
	return &Sampler{
		table:      table,
		rng:        rng,
		maxRetries: maxRetries,
		excluded:   roaring.New(),
	}
}

// Exclude marks flattened sentence indices that must never appear in a pair,
// such as sentences the tokenizer rejected.
func (s *Sampler) Exclude(indices ...int) {
	for _, i := range indices {
		s.excluded.Add(uint32(i))
	}
}

// Excluded reports whether sentence i was excluded.
func (s *Sampler) Excluded(i int) bool {
	return s.excluded.Contains(uint32(i))
}

// NumExcluded is the number of excluded sentences.
func (s *Sampler) NumExcluded() int {
	return int(s.excluded.GetCardinality())
}

// Positives returns one pair per adjacent sentence pair (i, i+1) of document
// d, in order. Pairs touching an excluded sentence are left out; a document
// with fewer than two sentences yields none.
func (s *Sampler) Positives(d int) []Pair {
	start, end := s.table.DocumentRange(d)
	if end-start < 2 {
		return nil
	}
	pairs := make([]Pair, 0, end-start-1)
	for i := start; i < end-1; i++ {
		if s.Excluded(i) || s.Excluded(i+1) {
			continue
		}
		pairs = append(pairs, Pair{First: i, Second: i + 1, IsNext: true, Document: d})
	}
	return pairs
}

// Negative draws a pair (a, b) uniformly over the flattened corpus such that
// b != a+1 and neither sentence is excluded. The order is kept as drawn. It
// fails with a *common.DataError when the corpus has at most one sentence or
// every one of the bounded attempts is rejected.
func (s *Sampler) Negative(d int) (Pair, error) {
	n := s.table.Len()
	if n <= 1 {
		return Pair{}, s.dataError("insufficient data for negative sampling", 0)
	}
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		a, b := s.rng.Intn(n), s.rng.Intn(n)
		if s.table.Adjacent(a, b) || s.Excluded(a) || s.Excluded(b) {
			continue
		}
		return Pair{First: a, Second: b, IsNext: false, Document: d}, nil
	}
	return Pair{}, s.dataError("insufficient data for negative sampling: retry budget exhausted", s.maxRetries)
}

func (s *Sampler) dataError(reason string, attempts int) error {
	return &common.DataError{
		Op:        "negative sampling",
		Reason:    reason,
		Documents: s.table.NumDocuments(),
		Sentences: s.table.Len(),
		Attempts:  attempts,
	}
}
