package tokenizer

import (
	"testing"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicEnglish(t *testing.T) {
	tok := NewBasicEnglish()

	tests := []struct {
		name     string
		sentence string
		want     []string
	}{
		{"lowercases", "The Movie WAS great", []string{"the", "movie", "was", "great"}},
		{"pads punctuation", "Wow, (really)!? ok.", []string{"wow", ",", "(", "really", ")", "!", "?", "ok", "."}},
		{"splits apostrophes", "don't", []string{"don", "'", "t"}},
		{"drops quotes and breaks", `a "quoted"<br />line`, []string{"a", "quoted", "line"}},
		{"drops colons and semicolons", "one; two: three", []string{"one", "two", "three"}},
		{"empty", "   ", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tok.Tokenize(tt.sentence)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWhitespace(t *testing.T) {
	got, err := Whitespace{}.Tokenize("Keep  Case,\tand punctuation.")
	require.NoError(t, err)
	assert.Equal(t, []string{"Keep", "Case,", "and", "punctuation."}, got)
}

func TestBert(t *testing.T) {
	tok := NewBert()

	got, err := tok.Tokenize("Héllo, WORLD! it's fine")
	require.NoError(t, err)
	assert.Equal(t, []string{"hello", ",", "world", "!", "it", "'", "s", "fine"}, got)
}

func TestMalformedSentence(t *testing.T) {
	bad := string([]byte{0xff, 0xfe, 'a'})

	for _, name := range []string{BasicEnglishName, WhitespaceName, BertName} {
		t.Run(name, func(t *testing.T) {
			tok, err := New(name)
			require.NoError(t, err)
			_, err = tok.Tokenize(bad)
			assert.ErrorIs(t, err, common.ErrMalformedSentence)
		})
	}
}

func TestNew(t *testing.T) {
	tok, err := New("")
	require.NoError(t, err)
	assert.IsType(t, &BasicEnglish{}, tok)

	tok, err = New(" BERT ")
	require.NoError(t, err)
	assert.IsType(t, &Bert{}, tok)

	_, err = New("sentencepiece")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSplitPunctuation(t *testing.T) {
	assert.Equal(t, []string{"a", "-", "b", "$", "5"}, splitPunctuation("a-b $5"))
	assert.Empty(t, splitPunctuation(""))
}
