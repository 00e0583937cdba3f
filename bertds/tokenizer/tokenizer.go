package tokenizer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"
)

// Tokenizer maps one raw sentence to its ordered word tokens. A sentence the
// tokenizer cannot handle yields an error wrapping common.ErrMalformedSentence.
type Tokenizer interface {
	Tokenize(sentence string) ([]string, error)
}

// Names of the built-in tokenizers accepted by New.
const (
	BasicEnglishName = "basic_english"
	WhitespaceName   = "whitespace"
	BertName         = "bert"
)

// ErrUnsupported indicates the tokenizer could not be initialized
var ErrUnsupported = fmt.Errorf("unsupported tokenizer configuration")

// New selects a tokenizer by name. An empty name selects basic_english.
func New(name string) (Tokenizer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case BasicEnglishName, "":
		return NewBasicEnglish(), nil
	case WhitespaceName:
		return Whitespace{}, nil
	case BertName:
		return NewBert(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, name)
	}
}

func checkUTF8(sentence string) error {
	if !utf8.ValidString(sentence) {
		return fmt.Errorf("%w: invalid UTF-8", common.ErrMalformedSentence)
	}
	return nil
}

// Whitespace splits on runs of whitespace and nothing else.
type Whitespace struct{}

func (Whitespace) Tokenize(sentence string) ([]string, error) {
	if err := checkUTF8(sentence); err != nil {
		return nil, err
	}
	return strings.Fields(sentence), nil
}

// BasicEnglish lowercases, pads common punctuation with spaces, drops double
// quotes and html line breaks, then splits on whitespace.
type BasicEnglish struct {
	replacer *strings.Replacer
}

func NewBasicEnglish() *BasicEnglish {
	return &BasicEnglish{replacer: strings.NewReplacer(
		`'`, ` '  `,
		`"`, ``,
		`.`, ` . `,
		`<br />`, ` `,
		`,`, ` , `,
		`(`, ` ( `,
		`)`, ` ) `,
		`!`, ` ! `,
		`?`, ` ? `,
		`;`, ` `,
		`:`, ` `,
	)}
}

func (b *BasicEnglish) Tokenize(sentence string) ([]string, error) {
	if err := checkUTF8(sentence); err != nil {
		return nil, err
	}
	return strings.Fields(b.replacer.Replace(strings.ToLower(sentence))), nil
}
