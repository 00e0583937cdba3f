package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	internal "github.com/ZanzyTHEbar/bert-dataset/bertds"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/config"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/dataset"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/masking"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/store"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/tokenizer"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type cli struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewCLI assembles the bertds command tree.
func NewCLI() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:   internal.DefaultAppName,
		Short: "Build masked-LM and next-sentence-prediction datasets from text corpora",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return c.load(cmd)
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a config file (default: search ., .., etc/bertds, ~/.config/bertds)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Human readable log output")
	rootCmd.PersistentFlags().String("catalog", "", "Catalog DSN (overrides store.catalog_dsn)")

	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(c.buildCmd(), c.inspectCmd(), c.buildsCmd())
	return rootCmd
}

func (c *cli) load(cmd *cobra.Command) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Log.Pretty, _ = cmd.Flags().GetBool("pretty")
	}
	if cmd.Flags().Changed("catalog") {
		cfg.Store.CatalogDSN, _ = cmd.Flags().GetString("catalog")
	}
	c.cfg = cfg
	c.logger = internal.NewLogger(cfg.Log.Level, cfg.Log.Pretty)
	return nil
}

func (c *cli) buildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [corpus]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Build a dataset from a corpus and persist it",
		Long: `Build reads a CSV column or a directory of .txt files, assembles the
masked-LM + NSP examples and writes a snapshot. The build is recorded in
the catalog unless --no-catalog is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				c.cfg.Corpus.Path = args[0]
			}
			if err := c.applyBuildFlags(cmd); err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			noCatalog, _ := cmd.Flags().GetBool("no-catalog")
			return c.runBuild(cmd.Context(), cmd.OutOrStdout(), out, !noCatalog)
		},
	}
	f := cmd.Flags()
	f.String("format", "", "Corpus format: csv or dir")
	f.String("column", "", "CSV column holding the documents")
	f.Int("from", 0, "First document to include")
	f.Int("to", 0, "Document index to stop before")
	f.Int64("seed", 0, "Random seed")
	f.Int("min-freq", 0, "Minimum token frequency")
	f.Float64("mask", 0, "Masking probability per eligible token")
	f.String("strategy", "", "Masking strategy: replace or bert")
	f.String("tokenizer", "", "Tokenizer: basic_english, whitespace or bert")
	f.Bool("text", false, "Keep example text in the dataset")
	f.Int("workers", 0, "Tokenization goroutines")
	f.String("out", "", "Snapshot path (default: store.snapshot_dir)")
	f.Bool("no-catalog", false, "Do not record the build in the catalog")
	return cmd
}

func (c *cli) applyBuildFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	d := &c.cfg.Dataset
	if f.Changed("format") {
		c.cfg.Corpus.Format, _ = f.GetString("format")
	}
	if f.Changed("column") {
		c.cfg.Corpus.Column, _ = f.GetString("column")
	}
	if f.Changed("from") {
		v, _ := f.GetInt("from")
		d.From = &v
	}
	if f.Changed("to") {
		v, _ := f.GetInt("to")
		d.To = &v
	}
	if f.Changed("seed") {
		d.RandomSeed, _ = f.GetInt64("seed")
	}
	if f.Changed("min-freq") {
		d.MinFreq, _ = f.GetInt("min-freq")
	}
	if f.Changed("mask") {
		d.MaskPercentage, _ = f.GetFloat64("mask")
	}
	if f.Changed("strategy") {
		d.MaskStrategy, _ = f.GetString("strategy")
	}
	if f.Changed("tokenizer") {
		d.Tokenizer, _ = f.GetString("tokenizer")
	}
	if f.Changed("text") {
		d.ShouldIncludeText, _ = f.GetBool("text")
	}
	if f.Changed("workers") {
		d.Workers, _ = f.GetInt("workers")
	}
	return c.cfg.Validate()
}

// datasetOptions maps the loaded configuration onto builder options.
func datasetOptions(cfg *config.Config, logger *zerolog.Logger) (dataset.Options, error) {
	d := cfg.Dataset
	strategy, err := masking.ParseStrategy(d.MaskStrategy)
	if err != nil {
		return dataset.Options{}, err
	}
	tok, err := tokenizer.New(d.Tokenizer)
	if err != nil {
		return dataset.Options{}, err
	}
	return dataset.Options{
		From:               d.From,
		To:                 d.To,
		IncludeText:        d.ShouldIncludeText,
		MinFreq:            d.MinFreq,
		MaskPercentage:     d.MaskPercentage,
		MaskStrategy:       strategy,
		LengthPercentile:   d.LengthPercentile,
		RandomSeed:         d.RandomSeed,
		MaxNegativeRetries: d.MaxNegativeRetries,
		Tokenizer:          tok,
		Workers:            d.Workers,
		Logger:             logger,
	}, nil
}

func loadCorpus(cfg config.CorpusConfig) ([]string, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("no corpus given: pass a path or set corpus.path")
	}
	switch cfg.Format {
	case "dir":
		return corpus.LoadDir(cfg.Path, cfg.IgnoreFile)
	default:
		return corpus.LoadCSV(cfg.Path, cfg.Column)
	}
}

func snapshotPath(cfg *config.Config) string {
	stem := strings.TrimSuffix(filepath.Base(cfg.Corpus.Path), filepath.Ext(cfg.Corpus.Path))
	name := fmt.Sprintf("%s-seed%d%s", stem, cfg.Dataset.RandomSeed, store.SnapshotExt)
	return filepath.Join(cfg.Store.SnapshotDir, name)
}

func (c *cli) runBuild(ctx context.Context, w io.Writer, out string, record bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	docs, err := loadCorpus(c.cfg.Corpus)
	if err != nil {
		return err
	}
	opts, err := datasetOptions(c.cfg, &c.logger)
	if err != nil {
		return err
	}
	ds, err := dataset.Build(ctx, docs, opts)
	if err != nil {
		return err
	}

	if out == "" {
		out = snapshotPath(c.cfg)
	}
	if err := store.PersistSnapshot(out, ds); err != nil {
		return err
	}
	c.logger.Info().Str("path", out).Int("examples", ds.Size()).Msg("snapshot written")

	if record {
		catalog, err := store.OpenCatalog(c.cfg.Store.CatalogDSN, c.logger)
		if err != nil {
			return err
		}
		defer catalog.Close()

		rec := store.NewBuildRecord(ds, opts)
		rec.Corpus = c.cfg.Corpus.Path
		rec.SnapshotPath = out
		rec.Tokenizer = c.cfg.Dataset.Tokenizer
		saved, err := catalog.RecordBuild(ctx, rec, ds.Vocabulary())
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "build %s\n", saved.ID)
	}

	printStats(w, ds)
	fmt.Fprintf(w, "snapshot: %s\n", out)
	return nil
}

func printStats(w io.Writer, ds *dataset.Dataset) {
	st := ds.Stats()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "examples:\t%d (%d positive, %d negative)\n", ds.Size(), st.Positives, st.Negatives)
	fmt.Fprintf(tw, "documents:\t%d\n", st.Documents)
	fmt.Fprintf(tw, "sentences:\t%d (%d skipped)\n", st.Sentences, st.SkippedSentences)
	fmt.Fprintf(tw, "vocabulary:\t%d\n", st.VocabSize)
	fmt.Fprintf(tw, "optimal length:\t%d (seq_len %d)\n", st.OptimalLength, st.SeqLen)
	fmt.Fprintf(tw, "masked positions:\t%d\n", st.MaskedPositions)
	tw.Flush()
}

func (c *cli) inspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <snapshot>",
		Args:  cobra.ExactArgs(1),
		Short: "Print statistics and examples of a dataset snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := store.LoadSnapshot(args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			printStats(w, ds)

			indices, _ := cmd.Flags().GetIntSlice("example")
			v := ds.Vocabulary()
			for _, i := range indices {
				ex, err := ds.Get(i)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\n#%d is_next=%t document=%d sentences=(%d, %d)\n", i, ex.IsNext, ex.Document, ex.First, ex.Second)
				fmt.Fprintf(w, "target: %s\n", strings.Join(v.Decode(ex.Target), " "))
				fmt.Fprintf(w, "masked: %s\n", strings.Join(v.Decode(ex.MaskedIndices), " "))
			}
			return nil
		},
	}
	cmd.Flags().IntSlice("example", nil, "Example indices to print")
	return cmd
}

func (c *cli) buildsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "builds",
		Args:  cobra.NoArgs,
		Short: "List the builds recorded in the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := store.OpenCatalog(c.cfg.Store.CatalogDSN, c.logger)
			if err != nil {
				return err
			}
			defer catalog.Close()

			builds, err := catalog.ListBuilds(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tCORPUS\tSEED\tEXAMPLES\tVOCAB\tSEQ_LEN")
			for _, b := range builds {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
					b.ID, b.CreatedAt.Format("2006-01-02 15:04:05"), b.Corpus, b.RandomSeed, b.Examples, b.VocabSize, b.SeqLen)
			}
			return tw.Flush()
		},
	}
}
