package dataset

import (
	"math/rand"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/masking"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/nsp"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/tokenizer"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"

	"github.com/rs/zerolog"
)

// Options configures one dataset build.
type Options struct {
	// From and To restrict the build to documents [From, To). Nil means unbounded.
	From *int
	To   *int
	// IncludeText keeps the laid out and masked token text on every example.
	IncludeText        bool
	MinFreq            int
	MaskPercentage     float64
	MaskStrategy       masking.Strategy
	LengthPercentile   float64
	RandomSeed         int64
	MaxNegativeRetries int
	// Tokenizer defaults to basic_english. It must be safe for concurrent
	// use when Workers > 1.
	Tokenizer tokenizer.Tokenizer
	// Workers bounds the goroutines used for tokenization. Results are
	// consumed in corpus order, so the output does not depend on it.
	Workers int
	// Rand overrides the source seeded from RandomSeed.
	Rand   *rand.Rand
	Logger *zerolog.Logger
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		MinFreq:            vocab.DefaultMinFreq,
		MaskPercentage:     masking.DefaultPercentage,
		MaskStrategy:       masking.StrategyReplace,
		LengthPercentile:   corpus.DefaultLengthPercentile,
		MaxNegativeRetries: nsp.DefaultMaxRetries,
		Workers:            1,
	}
}

func (o *Options) validate() error {
	if o.From != nil && *o.From < 0 {
		return common.ConfigError("ds_from", "must be >= 0, got %d", *o.From)
	}
	if o.To != nil && *o.To < 0 {
		return common.ConfigError("ds_to", "must be >= 0, got %d", *o.To)
	}
	if o.MinFreq < 1 {
		return common.ConfigError("min_freq", "must be >= 1, got %d", o.MinFreq)
	}
	if o.MaskPercentage < 0 || o.MaskPercentage > 1 {
		return common.ConfigError("mask_percentage", "must be within [0, 1], got %g", o.MaskPercentage)
	}
	if _, err := masking.ParseStrategy(string(o.MaskStrategy)); err != nil {
		return err
	}
	if o.LengthPercentile < 0 || o.LengthPercentile > 100 {
		return common.ConfigError("length_percentile", "must be within [0, 100], got %g", o.LengthPercentile)
	}
	if o.MaxNegativeRetries < 1 {
		return common.ConfigError("max_negative_retries", "must be >= 1, got %d", o.MaxNegativeRetries)
	}
	if o.Workers < 1 {
		return common.ConfigError("workers", "must be >= 1, got %d", o.Workers)
	}
	return nil
}
