package dataset

import (
	"fmt"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/common"

	"gorgonia.org/tensor"
)

// Batch is a set of examples stacked into dense columns.
type Batch struct {
	Masked    *tensor.Dense // int64 [n, seq_len]
	Target    *tensor.Dense // int64 [n, seq_len]
	TokenMask *tensor.Dense // uint8 [n, seq_len]
	Labels    *tensor.Dense // int64 [n]
}

// Collate stacks the examples at indices, in the given order.
func Collate(ds *Dataset, indices []int) (*Batch, error) {
	if len(indices) == 0 {
		return nil, common.ConfigError("batch", "no indices")
	}
	n, l := len(indices), ds.seqLen
	masked := make([]int64, 0, n*l)
	target := make([]int64, 0, n*l)
	mask := make([]uint8, 0, n*l)
	labels := make([]int64, 0, n)

	for _, i := range indices {
		if i < 0 || i >= len(ds.examples) {
			return nil, fmt.Errorf("%w: %d not in [0, %d)", common.ErrIndexOutOfRange, i, len(ds.examples))
		}
		ex := &ds.examples[i]
		for p := 0; p < l; p++ {
			masked = append(masked, int64(ex.MaskedIndices[p]))
			target = append(target, int64(ex.Target[p]))
			var m uint8
			if ex.TokenMask[p] {
				m = 1
			}
			mask = append(mask, m)
		}
		labels = append(labels, int64(ex.Label()))
	}

	return &Batch{
		Masked:    tensor.New(tensor.WithShape(n, l), tensor.WithBacking(masked)),
		Target:    tensor.New(tensor.WithShape(n, l), tensor.WithBacking(target)),
		TokenMask: tensor.New(tensor.WithShape(n, l), tensor.WithBacking(mask)),
		Labels:    tensor.New(tensor.WithShape(n), tensor.WithBacking(labels)),
	}, nil
}

// Batches splits [0, Size) into consecutive batches of at most size examples.
func Batches(ds *Dataset, size int) ([]*Batch, error) {
	if size < 1 {
		return nil, common.ConfigError("batch_size", "must be >= 1, got %d", size)
	}
	var out []*Batch
	for start := 0; start < ds.Size(); start += size {
		end := min(start+size, ds.Size())
		indices := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			indices = append(indices, i)
		}
		b, err := Collate(ds, indices)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
