package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/masking"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/nsp"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/tokenizer"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"
)

// Stage is the lifecycle position of a Builder.
type Stage int

const (
	StageUninitialized Stage = iota
	StageLoaded
	StageVocabBuilt
	StageLengthEstimated
	StageAssembled
)

func (s Stage) String() string {
	switch s {
	case StageUninitialized:
		return "uninitialized"
	case StageLoaded:
		return "loaded"
	case StageVocabBuilt:
		return "vocab_built"
	case StageLengthEstimated:
		return "length_estimated"
	case StageAssembled:
		return "assembled"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// ErrStage is returned when a Builder step is called out of order.
var ErrStage = errors.New("builder stage out of order")

// Builder runs a dataset build one stage at a time. Each step requires the
// previous one; a failed step leaves the builder in the stage it was in.
// A Builder is not safe for concurrent use.
type Builder struct {
	opts  Options
	log   zerolog.Logger
	tok   tokenizer.Tokenizer
	rng   *rand.Rand
	stage Stage

	table    *corpus.SentenceTable
	tokens   [][]string // per flattened sentence; nil when skipped
	warnings []Warning
	skipped  []int

	vocab  *vocab.Vocabulary
	length corpus.LengthStats
	policy *masking.Policy
}

// NewBuilder validates opts and prepares an UNINITIALIZED builder.
func NewBuilder(opts Options) (*Builder, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	b := &Builder{opts: opts, log: zerolog.Nop(), tok: opts.Tokenizer, rng: opts.Rand}
	if opts.Logger != nil {
		b.log = opts.Logger.With().Str("component", "dataset").Logger()
	}
	if b.tok == nil {
		b.tok = tokenizer.NewBasicEnglish()
	}
	if b.rng == nil {
		b.rng = rand.New(rand.NewSource(opts.RandomSeed))
	}
	if b.opts.MaskStrategy == "" {
		b.opts.MaskStrategy = masking.StrategyReplace
	}
	return b, nil
}

// Stage reports the current lifecycle stage.
func (b *Builder) Stage() Stage { return b.stage }

func (b *Builder) require(want Stage, op string) error {
	if b.stage == want {
		return nil
	}
	if want >= StageVocabBuilt && b.stage < StageVocabBuilt {
		return common.VocabError(op, "vocabulary is not frozen (stage %s)", b.stage)
	}
	return fmt.Errorf("%w: %s requires stage %s, builder is %s", ErrStage, op, want, b.stage)
}

// Load slices the corpus to [From, To) and segments every document.
func (b *Builder) Load(docs []string) error {
	if err := b.require(StageUninitialized, "load"); err != nil {
		return err
	}
	sliced, err := corpus.Slice(docs, b.opts.From, b.opts.To)
	if err != nil {
		return err
	}
	if len(sliced) == 0 {
		return common.ConfigError("corpus", "no documents in range")
	}
	table := corpus.NewSentenceTable(sliced)
	if table.Len() == 0 {
		return common.ConfigError("corpus", "%d documents contain no sentences", len(sliced))
	}

	b.table = table
	b.stage = StageLoaded
	b.log.Info().
		Str("stage", b.stage.String()).
		Int("documents", table.NumDocuments()).
		Int("sentences", table.Len()).
		Msg("corpus loaded")
	return nil
}

type tokenized struct {
	tokens []string
	err    error
}

func (b *Builder) tokenizeAll(ctx context.Context, texts []string) []tokenized {
	tokenize := func(s *string) tokenized {
		if ctx.Err() != nil {
			return tokenized{err: ctx.Err()}
		}
		toks, err := b.tok.Tokenize(*s)
		return tokenized{tokens: toks, err: err}
	}
	if b.opts.Workers <= 1 {
		out := make([]tokenized, len(texts))
		for i := range texts {
			out[i] = tokenize(&texts[i])
		}
		return out
	}
	mapper := iter.Mapper[string, tokenized]{MaxGoroutines: b.opts.Workers}
	return mapper.Map(texts, tokenize)
}

// BuildVocabulary tokenizes every sentence and freezes the vocabulary.
// Sentences the tokenizer rejects become warnings and are excluded from
// pairing. Accumulation runs in corpus order regardless of Workers.
func (b *Builder) BuildVocabulary(ctx context.Context) error {
	if err := b.require(StageLoaded, "build vocabulary"); err != nil {
		return err
	}

	results := b.tokenizeAll(ctx, b.table.Texts())
	if err := ctx.Err(); err != nil {
		return err
	}

	vb := vocab.NewBuilder(b.opts.MinFreq)
	tokens := make([][]string, len(results))
	var warnings []Warning
	var skipped []int
	for i, r := range results {
		if r.err != nil {
			s := b.table.At(i)
			w := Warning{Sentence: i, Document: s.Document, Err: r.err}
			warnings = append(warnings, w)
			skipped = append(skipped, i)
			b.log.Warn().Err(r.err).Int("sentence", i).Int("document", s.Document).Msg("skipping sentence")
			continue
		}
		if err := vb.Add(r.tokens); err != nil {
			return err
		}
		if r.tokens == nil {
			r.tokens = []string{}
		}
		tokens[i] = r.tokens
	}
	distinct := vb.Distinct()
	v, err := vb.Freeze()
	if err != nil {
		return err
	}

	b.tokens = tokens
	b.warnings = warnings
	b.skipped = skipped
	b.vocab = v
	b.stage = StageVocabBuilt
	b.log.Info().
		Str("stage", b.stage.String()).
		Int("distinct", distinct).
		Int("vocab_size", v.Size()).
		Int("skipped", len(skipped)).
		Msg("vocabulary frozen")
	return nil
}

// EstimateLength picks the optimal per-segment length from the word counts
// of the sentences that survived tokenization.
func (b *Builder) EstimateLength() error {
	if err := b.require(StageVocabBuilt, "estimate length"); err != nil {
		return err
	}
	all := b.table.WordCounts()
	counts := make([]int, 0, len(all))
	for i, c := range all {
		if b.tokens[i] != nil {
			counts = append(counts, c)
		}
	}
	stats, err := corpus.EstimateLength(counts, b.opts.LengthPercentile)
	if err != nil {
		return err
	}
	// An all-empty corpus would give a zero length; one token per segment
	// is the smallest usable layout.
	if stats.Optimal < 1 {
		stats.Optimal = 1
	}
	policy, err := masking.NewPolicy(b.vocab, stats.Optimal, b.opts.MaskPercentage, b.opts.MaskStrategy)
	if err != nil {
		return err
	}

	b.length = stats
	b.policy = policy
	b.stage = StageLengthEstimated
	b.log.Info().
		Str("stage", b.stage.String()).
		Int("optimal_length", stats.Optimal).
		Int("seq_len", policy.SeqLen()).
		Float64("mean", stats.Mean).
		Msg("length estimated")
	return nil
}

// Assemble walks the documents in order. For every positive pair it masks
// the pair, then samples and masks one negative, so examples alternate
// positive, negative. Nothing is returned unless the whole pass succeeds.
func (b *Builder) Assemble(ctx context.Context) (*Dataset, error) {
	if err := b.require(StageLengthEstimated, "assemble"); err != nil {
		return nil, err
	}

	sampler := nsp.NewSampler(b.table, b.rng, b.opts.MaxNegativeRetries)
	sampler.Exclude(b.skipped...)

	var examples []Example
	stats := Stats{
		Documents:        b.table.NumDocuments(),
		Sentences:        b.table.Len(),
		SkippedSentences: len(b.skipped),
		VocabSize:        b.vocab.Size(),
		OptimalLength:    b.length.Optimal,
		SeqLen:           b.policy.SeqLen(),
		Length:           b.length,
	}
	for d := 0; d < b.table.NumDocuments(); d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, pos := range sampler.Positives(d) {
			examples = append(examples, b.example(pos))
			neg, err := sampler.Negative(d)
			if err != nil {
				b.log.Error().Err(err).Int("document", d).Msg("negative sampling failed")
				return nil, err
			}
			examples = append(examples, b.example(neg))
		}
	}
	if len(examples) == 0 {
		return nil, &common.DataError{
			Op:        "assemble",
			Reason:    "no document has two adjacent usable sentences",
			Documents: stats.Documents,
			Sentences: stats.Sentences,
		}
	}
	for _, ex := range examples {
		if ex.IsNext {
			stats.Positives++
		} else {
			stats.Negatives++
		}
		stats.MaskedPositions += ex.NumMasked()
	}

	ds := newDataset(b.vocab, examples, b.length.Optimal, b.opts.IncludeText, stats, b.warnings)
	b.stage = StageAssembled
	b.log.Info().
		Str("stage", b.stage.String()).
		Int("examples", len(examples)).
		Int("positives", stats.Positives).
		Int("negatives", stats.Negatives).
		Msg("dataset assembled")
	return ds, nil
}

func (b *Builder) example(p nsp.Pair) Example {
	res := b.policy.Apply(b.tokens[p.First], b.tokens[p.Second], b.rng)
	ex := Example{
		MaskedIndices: res.Masked,
		Target:        res.Target,
		TokenMask:     res.TokenMask,
		IsNext:        p.IsNext,
		First:         p.First,
		Second:        p.Second,
		Document:      p.Document,
	}
	if b.opts.IncludeText {
		ex.Text = strings.Join(res.Tokens, " ")
		ex.MaskedText = strings.Join(res.MaskedTokens, " ")
	}
	return ex
}

// Build runs every stage over docs and returns the assembled dataset.
func Build(ctx context.Context, docs []string, opts Options) (*Dataset, error) {
	b, err := NewBuilder(opts)
	if err != nil {
		return nil, err
	}
	if err := b.Load(docs); err != nil {
		return nil, err
	}
	if err := b.BuildVocabulary(ctx); err != nil {
		return nil, err
	}
	if err := b.EstimateLength(); err != nil {
		return nil, err
	}
	return b.Assemble(ctx)
}
