package store

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/ZanzyTHEbar/bert-dataset/bertds/corpus"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/dataset"
	"github.com/ZanzyTHEbar/bert-dataset/bertds/vocab"
)

const (
	snapshotMagic   = "BDSN"
	snapshotVersion = uint32(1)
	// SnapshotExt is the file extension used for persisted snapshots.
	SnapshotExt = ".bdsn"

	maxStringLen = 1 << 24
)

// ErrInvalidSnapshot is returned for input that is not a readable snapshot.
var ErrInvalidSnapshot = errors.New("invalid dataset snapshot")

// WriteSnapshot encodes ds in a versioned, little-endian columnar layout:
//
//	[magic 'BDSN'] [u32 version] [u32 optimal length] [u8 include text]
//	[stats] [vocabulary: u32 n, n x (string, u64 freq)]
//	[u64 examples] then one column each for masked indices, targets,
//	token masks, labels, first, second and document, and when text is
//	retained the text and masked text columns.
//
// The output holds no timestamps, so identical datasets encode to identical bytes.
func WriteSnapshot(w io.Writer, ds *dataset.Dataset) error {
	bw := bufio.NewWriter(w)
	sw := &snapshotWriter{w: bw}

	sw.bytes([]byte(snapshotMagic))
	sw.u32(snapshotVersion)
	sw.u32(uint32(ds.OptimalLength()))
	sw.bool(ds.IncludeText())

	st := ds.Stats()
	sw.u32(uint32(st.Documents))
	sw.u32(uint32(st.Sentences))
	sw.u32(uint32(st.SkippedSentences))
	sw.u32(uint32(st.Length.Optimal))
	sw.f64(st.Length.Percentile)
	sw.u32(uint32(st.Length.Sentences))
	sw.f64(st.Length.Mean)
	sw.f64(st.Length.StdDev)
	sw.u32(uint32(st.Length.Max))

	v := ds.Vocabulary()
	tokens, freqs := v.Tokens(), v.Frequencies()
	sw.u32(uint32(len(tokens)))
	for i, tok := range tokens {
		sw.str(tok)
		sw.u64(uint64(freqs[i]))
	}

	n, l := ds.Size(), ds.SeqLen()
	sw.u64(uint64(n))

	masked := make([]uint32, 0, n*l)
	target := make([]uint32, 0, n*l)
	tokenMask := make([]uint8, 0, n*l)
	labels := make([]uint8, 0, n)
	first := make([]uint32, 0, n)
	second := make([]uint32, 0, n)
	docs := make([]uint32, 0, n)
	ds.Each(func(_ int, ex dataset.Example) bool {
		for p := 0; p < l; p++ {
			masked = append(masked, uint32(ex.MaskedIndices[p]))
			target = append(target, uint32(ex.Target[p]))
			var m uint8
			if ex.TokenMask[p] {
				m = 1
			}
			tokenMask = append(tokenMask, m)
		}
		labels = append(labels, uint8(ex.Label()))
		first = append(first, uint32(ex.First))
		second = append(second, uint32(ex.Second))
		docs = append(docs, uint32(ex.Document))
		return true
	})
	sw.column(masked)
	sw.column(target)
	sw.column(tokenMask)
	sw.column(labels)
	sw.column(first)
	sw.column(second)
	sw.column(docs)

	if ds.IncludeText() {
		ds.Each(func(_ int, ex dataset.Example) bool {
			sw.str(ex.Text)
			return sw.err == nil
		})
		ds.Each(func(_ int, ex dataset.Example) bool {
			sw.str(ex.MaskedText)
			return sw.err == nil
		})
	}

	if sw.err != nil {
		return fmt.Errorf("failed to write snapshot: %w", sw.err)
	}
	return bw.Flush()
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (*dataset.Dataset, error) {
	sr := &snapshotReader{r: bufio.NewReader(r)}

	magic := sr.bytes(len(snapshotMagic))
	if sr.err != nil || string(magic) != snapshotMagic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidSnapshot)
	}
	if ver := sr.u32(); sr.err == nil && ver != snapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, ver)
	}
	optimalLength := int(sr.u32())
	includeText := sr.bool()

	var st dataset.Stats
	st.Documents = int(sr.u32())
	st.Sentences = int(sr.u32())
	st.SkippedSentences = int(sr.u32())
	st.Length = corpus.LengthStats{
		Optimal:    int(sr.u32()),
		Percentile: sr.f64(),
		Sentences:  int(sr.u32()),
		Mean:       sr.f64(),
		StdDev:     sr.f64(),
		Max:        int(sr.u32()),
	}

	vocabSize := int(sr.u32())
	if sr.err != nil {
		return nil, sr.failed()
	}
	var tokens []string
	var freqs []int
	for i := 0; i < vocabSize && sr.err == nil; i++ {
		tokens = append(tokens, sr.str())
		freqs = append(freqs, int(sr.u64()))
	}
	if sr.err != nil {
		return nil, sr.failed()
	}
	v, err := vocab.Restore(tokens, freqs)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}

	n := int(sr.u64())
	if sr.err != nil {
		return nil, sr.failed()
	}
	if optimalLength < 1 {
		return nil, fmt.Errorf("%w: optimal length %d", ErrInvalidSnapshot, optimalLength)
	}
	l := 2*optimalLength + 3
	if n < 0 || n > math.MaxInt32/l {
		return nil, fmt.Errorf("%w: %d examples of length %d", ErrInvalidSnapshot, n, l)
	}

	masked := make([]uint32, n*l)
	target := make([]uint32, n*l)
	tokenMask := make([]uint8, n*l)
	labels := make([]uint8, n)
	first := make([]uint32, n)
	second := make([]uint32, n)
	docs := make([]uint32, n)
	sr.column(masked)
	sr.column(target)
	sr.column(tokenMask)
	sr.column(labels)
	sr.column(first)
	sr.column(second)
	sr.column(docs)
	if sr.err != nil {
		return nil, sr.failed()
	}

	examples := make([]dataset.Example, n)
	for i := range examples {
		ex := dataset.Example{
			MaskedIndices: make([]int, l),
			Target:        make([]int, l),
			TokenMask:     make([]bool, l),
			IsNext:        labels[i] == 1,
			First:         int(first[i]),
			Second:        int(second[i]),
			Document:      int(docs[i]),
		}
		for p := 0; p < l; p++ {
			ex.MaskedIndices[p] = int(masked[i*l+p])
			ex.Target[p] = int(target[i*l+p])
			ex.TokenMask[p] = tokenMask[i*l+p] == 1
		}
		examples[i] = ex
	}
	if includeText {
		for i := range examples {
			examples[i].Text = sr.str()
		}
		for i := range examples {
			examples[i].MaskedText = sr.str()
		}
		if sr.err != nil {
			return nil, sr.failed()
		}
	}

	ds, err := dataset.Restore(v, examples, optimalLength, includeText, st)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	return ds, nil
}

// PersistSnapshot writes ds to path, creating parent directories.
func PersistSnapshot(path string, ds *dataset.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("could not create snapshot directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSnapshot(f, ds); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadSnapshot reads a snapshot persisted with PersistSnapshot.
func LoadSnapshot(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// snapshotWriter keeps the first write error and ignores later writes.
type snapshotWriter struct {
	w   io.Writer
	err error
}

func (s *snapshotWriter) bytes(b []byte) {
	if s.err == nil {
		_, s.err = s.w.Write(b)
	}
}

func (s *snapshotWriter) column(data any) {
	if s.err == nil {
		s.err = binary.Write(s.w, binary.LittleEndian, data)
	}
}

func (s *snapshotWriter) u32(v uint32) { s.column(v) }
func (s *snapshotWriter) u64(v uint64) { s.column(v) }
func (s *snapshotWriter) f64(v float64) { s.u64(math.Float64bits(v)) }

func (s *snapshotWriter) bool(v bool) {
	if v {
		s.bytes([]byte{1})
	} else {
		s.bytes([]byte{0})
	}
}

func (s *snapshotWriter) str(v string) {
	s.u32(uint32(len(v)))
	s.bytes([]byte(v))
}

type snapshotReader struct {
	r   io.Reader
	err error
}

func (s *snapshotReader) failed() error {
	return fmt.Errorf("%w: %w", ErrInvalidSnapshot, s.err)
}

func (s *snapshotReader) bytes(n int) []byte {
	if s.err != nil {
		return nil
	}
	buf := make([]byte, n)
	_, s.err = io.ReadFull(s.r, buf)
	return buf
}

func (s *snapshotReader) column(data any) {
	if s.err == nil {
		s.err = binary.Read(s.r, binary.LittleEndian, data)
	}
}

func (s *snapshotReader) u32() uint32 {
	var v uint32
	s.column(&v)
	return v
}

func (s *snapshotReader) u64() uint64 {
	var v uint64
	s.column(&v)
	return v
}

func (s *snapshotReader) f64() float64 { return math.Float64frombits(s.u64()) }

func (s *snapshotReader) bool() bool {
	b := s.bytes(1)
	return s.err == nil && b[0] == 1
}

func (s *snapshotReader) str() string {
	n := s.u32()
	if s.err == nil && n > maxStringLen {
		s.err = fmt.Errorf("string of %d bytes", n)
	}
	if s.err != nil {
		return ""
	}
	return string(s.bytes(int(n)))
}
