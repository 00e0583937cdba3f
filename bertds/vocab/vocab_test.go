package vocab

import (
	"testing"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildVocab(t *testing.T, minFreq int, sentences ...[]string) *Vocabulary {
	t.Helper()
	b := NewBuilder(minFreq)
	for _, s := range sentences {
		require.NoError(t, b.Add(s))
	}
	v, err := b.Freeze()
	require.NoError(t, err)
	return v
}

func TestSpecialIndices(t *testing.T) {
	corpora := map[string][][]string{
		"empty":         nil,
		"all below min": {{"a", "b", "c"}},
		"regular":       {{"the", "cat"}, {"the", "dog"}, {"cat", "the"}},
		"special clash": {{"[MASK]", "[MASK]", "x", "x"}},
	}

	for name, sentences := range corpora {
		t.Run(name, func(t *testing.T) {
			v := buildVocab(t, DefaultMinFreq, sentences...)
			assert.Equal(t, CLSIndex, v.Index(CLS))
			assert.Equal(t, PADIndex, v.Index(PAD))
			assert.Equal(t, MASKIndex, v.Index(MASK))
			assert.Equal(t, SEPIndex, v.Index(SEP))
			assert.Equal(t, UNKIndex, v.Index(UNK))
			assert.Equal(t, []string{"[CLS]", "[PAD]", "[MASK]", "[SEP]", "[UNK]"}, v.Tokens()[:NumSpecials])
		})
	}
}

func TestFreezeOrdering(t *testing.T) {
	v := buildVocab(t, 2,
		[]string{"b", "a", "c", "a"},
		[]string{"c", "b", "a", "d"},
		[]string{"c", "e", "b"},
	)

	// a=3, b=3, c=3 tie in encounter order b, a, c; d and e drop below min_freq
	assert.Equal(t, []string{"[CLS]", "[PAD]", "[MASK]", "[SEP]", "[UNK]", "b", "a", "c"}, v.Tokens())
	assert.Equal(t, 8, v.Size())
	assert.Equal(t, 3, v.Frequency("a"))
	assert.Equal(t, 0, v.Frequency("d"))
	assert.Equal(t, 0, v.Frequency(CLS))
}

func TestFrequencyRankBeforeEncounter(t *testing.T) {
	v := buildVocab(t, 1, []string{"rare", "common", "common", "mid", "mid", "common"})
	assert.Equal(t, []string{"common", "mid", "rare"}, v.Tokens()[NumSpecials:])
	assert.Equal(t, []int{0, 0, 0, 0, 0, 3, 2, 1}, v.Frequencies())
}

func TestRoundTrip(t *testing.T) {
	v := buildVocab(t, 2,
		[]string{"the", "movie", "was", "good"},
		[]string{"the", "movie", "was", "bad"},
	)

	for _, tok := range []string{"the", "movie", "was"} {
		idx := v.Index(tok)
		assert.GreaterOrEqual(t, idx, NumSpecials)
		assert.Equal(t, tok, v.Token(idx))
		assert.True(t, v.Contains(tok))
	}

	// below min_freq and never seen both fall back to UNK
	for _, tok := range []string{"good", "bad", "popcorn"} {
		assert.False(t, v.Contains(tok))
		assert.Equal(t, UNKIndex, v.Index(tok))
		assert.Equal(t, UNK, v.Token(v.Index(tok)))
	}

	assert.Equal(t, UNK, v.Token(-1))
	assert.Equal(t, UNK, v.Token(v.Size()))

	indices := v.Encode([]string{"[CLS]", "the", "popcorn", "[SEP]"})
	assert.Equal(t, []int{CLSIndex, v.Index("the"), UNKIndex, SEPIndex}, indices)
	assert.Equal(t, []string{"[CLS]", "the", "[UNK]", "[SEP]"}, v.Decode(indices))
}

func TestBuilderLifecycle(t *testing.T) {
	b := NewBuilder(1)
	assert.Equal(t, Accumulating, b.State())
	require.NoError(t, b.Add([]string{"x", "y", "x"}))
	assert.Equal(t, 2, b.Distinct())

	_, err := b.Freeze()
	require.NoError(t, err)
	assert.Equal(t, Frozen, b.State())
	assert.Equal(t, "frozen", b.State().String())

	err = b.Add([]string{"z"})
	assert.ErrorIs(t, err, common.ErrVocabulary)

	_, err = b.Freeze()
	assert.ErrorIs(t, err, common.ErrVocabulary)
}

func TestTokensReturnsCopy(t *testing.T) {
	v := buildVocab(t, 1, []string{"keep"})
	tokens := v.Tokens()
	tokens[NumSpecials] = "mutated"
	assert.Equal(t, "keep", v.Token(NumSpecials))
}

func TestWithPrefix(t *testing.T) {
	v := buildVocab(t, 1, []string{"movie", "moving", "mover", "film"})
	assert.Equal(t, []string{"mover", "movie", "moving"}, v.WithPrefix("mov"))
	assert.Equal(t, []string{"[CLS]", "[MASK]", "[PAD]", "[SEP]", "[UNK]"}, v.WithPrefix("["))
	assert.Empty(t, v.WithPrefix("zzz"))
}

func TestRestore(t *testing.T) {
	orig := buildVocab(t, 1, []string{"a", "b", "a"})

	restored, err := Restore(orig.Tokens(), orig.Frequencies())
	require.NoError(t, err)
	assert.Equal(t, orig.Tokens(), restored.Tokens())
	assert.Equal(t, orig.Index("b"), restored.Index("b"))
	assert.Equal(t, 2, restored.Frequency("a"))

	tests := []struct {
		name   string
		tokens []string
		freqs  []int
	}{
		{"too short", []string{"[CLS]"}, []int{0}},
		{"length mismatch", orig.Tokens(), []int{0}},
		{"wrong special order", []string{"[PAD]", "[CLS]", "[MASK]", "[SEP]", "[UNK]"}, make([]int, 5)},
		{"duplicate", append(orig.Tokens(), "a"), append(orig.Frequencies(), 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Restore(tt.tokens, tt.freqs)
			assert.ErrorIs(t, err, common.ErrVocabulary)
		})
	}
}
