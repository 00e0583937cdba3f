package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/dataset"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "github.com/tursodatabase/go-libsql"
)

// ErrBuildNotFound is returned when a build id is not in the catalog.
var ErrBuildNotFound = errors.New("build not found")

// BuildRecord is one catalogued dataset build.
type BuildRecord struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Corpus         string
	SnapshotPath   string
	RandomSeed     int64
	MinFreq        int
	MaskPercentage float64
	MaskStrategy   string
	Tokenizer      string

	Documents        int
	Sentences        int
	SkippedSentences int
	Examples         int
	Positives        int
	Negatives        int
	VocabSize        int
	OptimalLength    int
	SeqLen           int
}

// NewBuildRecord fills the statistics of a record from ds.
func NewBuildRecord(ds *dataset.Dataset, opts dataset.Options) BuildRecord {
	st := ds.Stats()
	return BuildRecord{
		RandomSeed:       opts.RandomSeed,
		MinFreq:          opts.MinFreq,
		MaskPercentage:   opts.MaskPercentage,
		MaskStrategy:     string(opts.MaskStrategy),
		Documents:        st.Documents,
		Sentences:        st.Sentences,
		SkippedSentences: st.SkippedSentences,
		Examples:         ds.Size(),
		Positives:        st.Positives,
		Negatives:        st.Negatives,
		VocabSize:        st.VocabSize,
		OptimalLength:    st.OptimalLength,
		SeqLen:           st.SeqLen,
	}
}

// Catalog records dataset builds and their vocabularies in a libsql database.
type Catalog struct {
	db  *sql.DB
	log zerolog.Logger
}

// OpenCatalog opens or initializes the catalog at dsn. A dsn without a
// scheme is treated as a local file path.
func OpenCatalog(dsn string, logger zerolog.Logger) (*Catalog, error) {
	if !strings.Contains(dsn, ":") {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("could not create catalog directory: %w", err)
		}
		dsn = "file:" + dsn
	} else if path, ok := strings.CutPrefix(dsn, "file:"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("could not create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog %s: %w", dsn, err)
	}
	c := &Catalog{db: db, log: logger.With().Str("component", "catalog").Logger()}
	if err := c.init(); err != nil {
		db.Close()
		return nil, err
	}
	c.log.Debug().Str("dsn", dsn).Msg("catalog opened")
	return c, nil
}

func (c *Catalog) init() error {
	_, err := c.db.Exec(`CREATE TABLE IF NOT EXISTS builds (
		id TEXT PRIMARY KEY UNIQUE,
		created_at TEXT NOT NULL,
		corpus TEXT,
		snapshot_path TEXT,
		random_seed INTEGER,
		min_freq INTEGER,
		mask_percentage REAL,
		mask_strategy TEXT,
		tokenizer TEXT,
		documents INTEGER,
		sentences INTEGER,
		skipped_sentences INTEGER,
		examples INTEGER,
		positives INTEGER,
		negatives INTEGER,
		vocab_size INTEGER,
		optimal_length INTEGER,
		seq_len INTEGER
	)`)
	if err != nil {
		return fmt.Errorf("failed to create builds table: %w", err)
	}

	_, err = c.db.Exec(`CREATE TABLE IF NOT EXISTS vocab_tokens (
		build_id TEXT NOT NULL,
		idx INTEGER NOT NULL,
		token TEXT NOT NULL,
		frequency INTEGER NOT NULL,
		PRIMARY KEY (build_id, idx)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create vocab_tokens table: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error { return c.db.Close() }

// RecordBuild stores rec and the vocabulary v in one transaction and
// returns rec with its assigned id and creation time.
func (c *Catalog) RecordBuild(ctx context.Context, rec BuildRecord, v *vocab.Vocabulary) (*BuildRecord, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	rec.ID = uuid.New()
	rec.CreatedAt = time.Now().UTC().Truncate(time.Second)

	result, err := tx.ExecContext(ctx, `INSERT INTO builds (
		id, created_at, corpus, snapshot_path, random_seed, min_freq, mask_percentage, mask_strategy, tokenizer,
		documents, sentences, skipped_sentences, examples, positives, negatives, vocab_size, optimal_length, seq_len
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.CreatedAt.Format(time.RFC3339), rec.Corpus, rec.SnapshotPath, rec.RandomSeed,
		rec.MinFreq, rec.MaskPercentage, rec.MaskStrategy, rec.Tokenizer,
		rec.Documents, rec.Sentences, rec.SkippedSentences, rec.Examples, rec.Positives, rec.Negatives,
		rec.VocabSize, rec.OptimalLength, rec.SeqLen)
	if err != nil {
		return nil, fmt.Errorf("failed to insert build: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected != 1 {
		return nil, fmt.Errorf("expected 1 row affected, got %d", rowsAffected)
	}

	if v != nil {
		stmt, err := tx.PrepareContext(ctx, "INSERT INTO vocab_tokens (build_id, idx, token, frequency) VALUES (?, ?, ?, ?)")
		if err != nil {
			return nil, fmt.Errorf("failed to prepare vocabulary insert: %w", err)
		}
		defer stmt.Close()
		freqs := v.Frequencies()
		for i, tok := range v.Tokens() {
			if _, err := stmt.ExecContext(ctx, rec.ID.String(), i, tok, freqs[i]); err != nil {
				return nil, fmt.Errorf("failed to insert token %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	c.log.Debug().Str("id", rec.ID.String()).Int("examples", rec.Examples).Msg("build recorded")
	return &rec, nil
}

const buildColumns = `id, created_at, corpus, snapshot_path, random_seed, min_freq, mask_percentage, mask_strategy, tokenizer,
	documents, sentences, skipped_sentences, examples, positives, negatives, vocab_size, optimal_length, seq_len`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBuild(row rowScanner) (*BuildRecord, error) {
	var rec BuildRecord
	var id, created string
	err := row.Scan(&id, &created, &rec.Corpus, &rec.SnapshotPath, &rec.RandomSeed, &rec.MinFreq,
		&rec.MaskPercentage, &rec.MaskStrategy, &rec.Tokenizer,
		&rec.Documents, &rec.Sentences, &rec.SkippedSentences, &rec.Examples, &rec.Positives, &rec.Negatives,
		&rec.VocabSize, &rec.OptimalLength, &rec.SeqLen)
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid build id %q: %w", id, err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, fmt.Errorf("invalid creation time %q: %w", created, err)
	}
	return &rec, nil
}

// GetBuild looks up one build by id.
func (c *Catalog) GetBuild(ctx context.Context, id uuid.UUID) (*BuildRecord, error) {
	row := c.db.QueryRowContext(ctx, "SELECT "+buildColumns+" FROM builds WHERE id = ?", id.String())
	rec, err := scanBuild(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	return rec, err
}

// ListBuilds returns every build, oldest first.
func (c *Catalog) ListBuilds(ctx context.Context) ([]BuildRecord, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT "+buildColumns+" FROM builds ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list builds: %w", err)
	}
	defer rows.Close()

	var builds []BuildRecord
	for rows.Next() {
		rec, err := scanBuild(rows)
		if err != nil {
			return nil, err
		}
		builds = append(builds, *rec)
	}
	return builds, rows.Err()
}

// Vocabulary restores the vocabulary recorded with a build.
func (c *Catalog) Vocabulary(ctx context.Context, id uuid.UUID) (*vocab.Vocabulary, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT token, frequency FROM vocab_tokens WHERE build_id = ? ORDER BY idx", id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query vocabulary: %w", err)
	}
	defer rows.Close()

	var tokens []string
	var freqs []int
	for rows.Next() {
		var tok string
		var freq int
		if err := rows.Scan(&tok, &freq); err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		freqs = append(freqs, freq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: %s has no vocabulary", ErrBuildNotFound, id)
	}
	return vocab.Restore(tokens, freqs)
}

// DeleteBuild removes a build and its vocabulary.
func (c *Catalog) DeleteBuild(ctx context.Context, id uuid.UUID) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, "DELETE FROM builds WHERE id = ?", id.String())
	if err != nil {
		return fmt.Errorf("failed to delete build: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBuildNotFound, id)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM vocab_tokens WHERE build_id = ?", id.String()); err != nil {
		return fmt.Errorf("failed to delete vocabulary: %w", err)
	}
	return tx.Commit()
}
