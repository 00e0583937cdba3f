package corpus

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{"two sentences", "A sent. B sent.", []string{"A sent", "B sent."}},
		{"no delimiter", "just one sentence", []string{"just one sentence"}},
		{"period without space", "v1.2 is out.Great", []string{"v1.2 is out.Great"}},
		{"empty document", "", []string{}},
		{"whitespace fragments dropped", "One. . Two.  ", []string{"One", "Two.  "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.doc))
		})
	}
}

func TestSentenceTable(t *testing.T) {
	table := NewSentenceTable([]string{"A sent. B sent.", "", "C sent. D sent. E sent"})

	require.Equal(t, 5, table.Len())
	assert.Equal(t, 3, table.NumDocuments())

	assert.Equal(t, Sentence{Text: "A sent", Document: 0, Position: 0}, table.At(0))
	assert.Equal(t, Sentence{Text: "C sent", Document: 2, Position: 0}, table.At(2))
	assert.Equal(t, Sentence{Text: "E sent", Document: 2, Position: 2}, table.At(4))

	start, end := table.DocumentRange(1)
	assert.Equal(t, 2, start)
	assert.Equal(t, 2, end)
	assert.Equal(t, 0, table.DocumentLen(1))
	assert.Equal(t, 3, table.DocumentLen(2))

	assert.True(t, table.Adjacent(0, 1))
	assert.False(t, table.Adjacent(0, 2))
	assert.False(t, table.Adjacent(1, 0))

	assert.Equal(t, []int{2, 2, 2, 2, 2}, table.WordCounts())
	assert.Equal(t, "D sent", table.Texts()[3])
}

func TestPercentile(t *testing.T) {
	values := []int{10, 1, 4, 7, 3}

	tests := []struct {
		p    float64
		want float64
	}{
		{0, 1},
		{50, 4},
		{70, 6.4}, // rank 2.8 between 4 and 7
		{100, 10},
	}
	for _, tt := range tests {
		got, err := Percentile(values, tt.p)
		require.NoError(t, err)
		assert.InDelta(t, tt.want, got, 1e-9, "p=%v", tt.p)
	}

	// input order is not disturbed
	assert.Equal(t, []int{10, 1, 4, 7, 3}, values)

	_, err := Percentile(nil, 70)
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = Percentile(values, 120)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestEstimateLength(t *testing.T) {
	stats, err := EstimateLength([]int{10, 1, 4, 7, 3}, DefaultLengthPercentile)
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Optimal)
	assert.Equal(t, 5, stats.Sentences)
	assert.InDelta(t, 5.0, stats.Mean, 1e-9)
	assert.Greater(t, stats.StdDev, 0.0)
	assert.Equal(t, 10, stats.Max)

	single, err := EstimateLength([]int{3}, 70)
	require.NoError(t, err)
	assert.Equal(t, 3, single.Optimal)
	assert.Equal(t, 0.0, single.StdDev)

	_, err = EstimateLength(nil, 70)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestEstimateLengthIsDeterministic(t *testing.T) {
	table := NewSentenceTable([]string{
		"the movie was great. i loved the acting and the score",
		"terrible plot. boring. would not watch again",
	})
	first, err := EstimateLength(table.WordCounts(), 70)
	require.NoError(t, err)
	second, err := EstimateLength(table.WordCounts(), 70)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReadCSV(t *testing.T) {
	data := "id,review,sentiment\n1,\"Great film. Loved it.\",positive\n2,Bad. Awful,negative\n3\n"

	docs, err := ReadCSV(strings.NewReader(data), DefaultColumn)
	require.NoError(t, err)
	assert.Equal(t, []string{"Great film. Loved it.", "Bad. Awful", ""}, docs)

	_, err = ReadCSV(strings.NewReader(data), "missing")
	assert.ErrorIs(t, err, common.ErrConfiguration)

	_, err = ReadCSV(strings.NewReader(""), DefaultColumn)
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corpus.csv")
	require.NoError(t, os.WriteFile(path, []byte("review\nA. B\nC\n"), 0o644))

	docs, err := LoadCSV(path, "review")
	require.NoError(t, err)
	assert.Equal(t, []string{"A. B", "C"}, docs)

	_, err = LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), "review")
	assert.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("b.txt", "second")
	write("a.txt", "first")
	write("nested/c.txt", "third")
	write("drafts/d.txt", "ignored")
	write("notes.md", "not a document")

	docs, err := LoadDir(root, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "ignored", "third"}, docs)

	ignoreFile := filepath.Join(t.TempDir(), ".corpusignore")
	require.NoError(t, os.WriteFile(ignoreFile, []byte("drafts/\n"), 0o644))

	docs, err = LoadDir(root, ignoreFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, docs)
}

func TestSlice(t *testing.T) {
	docs := []string{"a", "b", "c", "d"}
	intPtr := func(v int) *int { return &v }

	got, err := Slice(docs, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, docs, got)

	got, err = Slice(docs, intPtr(1), intPtr(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, got)

	got, err = Slice(docs, intPtr(2), intPtr(100))
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, got)

	got, err = Slice(docs, nil, intPtr(0))
	require.NoError(t, err)
	assert.Empty(t, got)

	invalid := []struct {
		name     string
		from, to *int
	}{
		{"negative from", intPtr(-1), nil},
		{"negative to", nil, intPtr(-2)},
		{"from past end", intPtr(5), nil},
		{"inverted", intPtr(3), intPtr(1)},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Slice(docs, tt.from, tt.to)
			assert.ErrorIs(t, err, common.ErrConfiguration)
		})
	}
}
