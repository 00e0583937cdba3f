package corpus

import (
	"math"
	"slices"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultLengthPercentile is the percentile used for the optimal length.
const DefaultLengthPercentile = 70

// LengthStats summarizes the sentence length distribution of a corpus.
type LengthStats struct {
	Optimal    int     // word count at Percentile, truncated
	Percentile float64 // percentile used for Optimal
	Sentences  int
	Mean       float64
	StdDev     float64
	Max        int
}

// Percentile returns the p-th percentile of values using linear
// interpolation between the two closest ranks. p must lie within [0, 100].
func Percentile(values []int, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, common.ConfigError("length_percentile", "no sentences to compute a percentile over")
	}
	if p < 0 || p > 100 || math.IsNaN(p) {
		return 0, common.ConfigError("length_percentile", "must be within [0, 100], got %g", p)
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return float64(sorted[lo]), nil
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + (float64(sorted[hi])-float64(sorted[lo]))*frac, nil
}

// EstimateLength computes the optimal sentence length and the summary
// statistics of the word count distribution. It fails with a configuration
// error when counts is empty.
func EstimateLength(counts []int, percentile float64) (LengthStats, error) {
	value, err := Percentile(counts, percentile)
	if err != nil {
		return LengthStats{}, err
	}

	xs := make([]float64, len(counts))
	for i, c := range counts {
		xs[i] = float64(c)
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}

	return LengthStats{
		Optimal:    int(value),
		Percentile: percentile,
		Sentences:  len(counts),
		Mean:       mean,
		StdDev:     std,
		Max:        int(floats.Max(xs)),
	}, nil
}
