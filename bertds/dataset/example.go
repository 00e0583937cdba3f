package dataset

import (
	"slices"
)

// Example is one masked-LM + NSP training sample. MaskedIndices, Target and
// TokenMask share the dataset's sequence length.
type Example struct {
	MaskedIndices []int
	Target        []int
	TokenMask     []bool
	IsNext        bool

	// Set only when the dataset retains text.
	MaskedText string
	Text       string

	// Provenance: flattened sentence positions and the document whose
	// adjacent pair produced this example.
	First    int
	Second   int
	Document int
}

// Label is the NSP target: 1 when the second sentence follows the first.
func (e Example) Label() int {
	if e.IsNext {
		return 1
	}
	return 0
}

// NumMasked is the number of positions flagged in TokenMask.
func (e Example) NumMasked() int {
	n := 0
	for _, m := range e.TokenMask {
		if m {
			n++
		}
	}
	return n
}

func (e Example) clone() Example {
	e.MaskedIndices = slices.Clone(e.MaskedIndices)
	e.Target = slices.Clone(e.Target)
	e.TokenMask = slices.Clone(e.TokenMask)
	return e
}
