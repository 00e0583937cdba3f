package dataset

import (
	"slices"

	roaring "github.com/RoaringBitmap/roaring"
)

// Index holds roaring bitmaps of example ids keyed by NSP label and by
// originating document.
type Index struct {
	positives  *roaring.Bitmap
	negatives  *roaring.Bitmap
	byDocument map[uint32]*roaring.Bitmap
}

func newIndex(examples []Example) *Index {
	ix := &Index{
		positives:  roaring.New(),
		negatives:  roaring.New(),
		byDocument: make(map[uint32]*roaring.Bitmap),
	}
	for i, ex := range examples {
		if ex.IsNext {
			ix.positives.Add(uint32(i))
		} else {
			ix.negatives.Add(uint32(i))
		}
		doc := uint32(ex.Document)
		bm, ok := ix.byDocument[doc]
		if !ok {
			bm = roaring.New()
			ix.byDocument[doc] = bm
		}
		bm.Add(uint32(i))
	}
	return ix
}

// Positives returns a copy of the ids of examples labelled IsNext.
func (ix *Index) Positives() *roaring.Bitmap { return ix.positives.Clone() }

// Negatives returns a copy of the ids of examples not labelled IsNext.
func (ix *Index) Negatives() *roaring.Bitmap { return ix.negatives.Clone() }

// Document returns a copy of the ids of examples originating from document d.
func (ix *Index) Document(d int) *roaring.Bitmap {
	bm, ok := ix.byDocument[uint32(d)]
	if !ok {
		return roaring.New()
	}
	return bm.Clone()
}

// DocumentLabel intersects a document's examples with one label.
func (ix *Index) DocumentLabel(d int, isNext bool) *roaring.Bitmap {
	bm := ix.Document(d)
	if isNext {
		bm.And(ix.positives)
	} else {
		bm.And(ix.negatives)
	}
	return bm
}

// Documents lists the documents that produced at least one example.
func (ix *Index) Documents() []int {
	docs := make([]int, 0, len(ix.byDocument))
	for d := range ix.byDocument {
		docs = append(docs, int(d))
	}
	slices.Sort(docs)
	return docs
}
