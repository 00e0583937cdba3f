package corpus

import (
	"strings"
)

// SentenceDelimiter is the literal boundary documents are split on.
const SentenceDelimiter = ". "

// Segment splits a document into its raw sentence fragments. Fragments that
// are empty or whitespace-only are dropped, so an empty document yields no
// sentences and a document without the delimiter yields exactly one.
func Segment(doc string) []string {
	parts := strings.Split(doc, SentenceDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// WordCount is the whitespace-token count of a sentence.
func WordCount(sentence string) int {
	return len(strings.Fields(sentence))
}

// Sentence is one fragment of a document.
type Sentence struct {
	Text     string
	Document int // index of the source document
	Position int // position within the source document
}

// SentenceTable keeps every sentence of a corpus in one flattened,
// order-preserving sequence. Document boundaries live in a side table of
// offsets so that corpus-wide sampling works on a plain index range.
type SentenceTable struct {
	sentences []Sentence
	offsets   []int // offsets[d] is the flattened index of document d's first sentence; len = docs+1
}

// NewSentenceTable segments every document and flattens the result.
func NewSentenceTable(docs []string) *SentenceTable {
	t := &SentenceTable{offsets: make([]int, 0, len(docs)+1)}
	for d, doc := range docs {
		t.offsets = append(t.offsets, len(t.sentences))
		for p, s := range Segment(doc) {
			t.sentences = append(t.sentences, Sentence{Text: s, Document: d, Position: p})
		}
	}
	t.offsets = append(t.offsets, len(t.sentences))
	return t
}

// Len is the number of sentences across all documents.
func (t *SentenceTable) Len() int { return len(t.sentences) }

// NumDocuments is the number of documents the table was built from,
// including documents that produced no sentences.
func (t *SentenceTable) NumDocuments() int { return len(t.offsets) - 1 }

// At returns the sentence at flattened index i.
func (t *SentenceTable) At(i int) Sentence { return t.sentences[i] }

// DocumentRange returns the half-open flattened range [start, end) of document d.
func (t *SentenceTable) DocumentRange(d int) (start, end int) {
	return t.offsets[d], t.offsets[d+1]
}

// DocumentLen is the number of sentences in document d.
func (t *SentenceTable) DocumentLen(d int) int {
	start, end := t.DocumentRange(d)
	return end - start
}

// Adjacent reports whether b immediately follows a in the flattened ordering.
func (t *SentenceTable) Adjacent(a, b int) bool { return b == a+1 }

// WordCounts returns the whitespace word count of every sentence in order.
func (t *SentenceTable) WordCounts() []int {
	counts := make([]int, len(t.sentences))
	for i, s := range t.sentences {
		counts[i] = WordCount(s.Text)
	}
	return counts
}

// Texts returns the raw text of every sentence in order.
func (t *SentenceTable) Texts() []string {
	texts := make([]string, len(t.sentences))
	for i, s := range t.sentences {
		texts[i] = s.Text
	}
	return texts
}
