package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	ignore "github.com/sabhiram/go-gitignore"
)

// DefaultColumn is the CSV column documents are read from.
const DefaultColumn = "review"

// ReadCSV reads every row of the named column from a CSV stream whose first
// row is the header.
func ReadCSV(r io.Reader, column string) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, common.ConfigError("corpus.column", "csv has no header row")
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	col := -1
	for i, name := range header {
		if strings.TrimSpace(name) == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, common.ConfigError("corpus.column", "column %q not found in header %v", column, header)
	}

	var docs []string
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row %d: %w", line, err)
		}
		if col >= len(rec) {
			docs = append(docs, "")
			continue
		}
		docs = append(docs, rec[col])
	}
	return docs, nil
}

// LoadCSV opens path and reads the named column.
func LoadCSV(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, column)
}

// LoadDir reads every .txt file below root as one document each, in lexical
// path order. Files matched by the gitignore-style ignoreFile (relative to
// root, optional) are skipped.
func LoadDir(root, ignoreFile string) ([]string, error) {
	var matcher *ignore.GitIgnore
	if ignoreFile != "" {
		m, err := ignore.CompileIgnoreFile(ignoreFile)
		if err != nil {
			return nil, fmt.Errorf("failed to compile ignore file %s: %w", ignoreFile, err)
		}
		matcher = m
	}

	var paths []string
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if matcher != nil && matcher.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk corpus directory %s: %w", root, err)
	}
	// Stable ordering for deterministic document indices
	sort.Strings(paths)

	docs := make([]string, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", p, err)
		}
		docs = append(docs, string(b))
	}
	return docs, nil
}

// Slice restricts docs to the half-open row range [from, to). Nil bounds
// mean the start and end of the corpus. A to past the end is clamped;
// negative bounds, from > to, or from past the end are configuration errors.
func Slice(docs []string, from, to *int) ([]string, error) {
	start, end := 0, len(docs)
	if from != nil {
		if *from < 0 {
			return nil, common.ConfigError("ds_from", "must be >= 0, got %d", *from)
		}
		if *from > len(docs) {
			return nil, common.ConfigError("ds_from", "%d is past the end of a %d document corpus", *from, len(docs))
		}
		start = *from
	}
	if to != nil {
		if *to < 0 {
			return nil, common.ConfigError("ds_to", "must be >= 0, got %d", *to)
		}
		end = min(*to, len(docs))
	}
	if start > end {
		return nil, common.ConfigError("ds_from", "must not exceed ds_to (%d > %d)", start, end)
	}
	return docs[start:end], nil
}
