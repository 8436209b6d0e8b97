// Package samples implements the per-run SA sample vectors and thresholds
// (C4): samples_start, the packed samples_last, and thresholds, loaded from
// the <prefix>.ssa/.esa/.thr_pos triple described in original_source's
// ms_pointers.hpp constructor.
package samples

import (
	"bufio"
	"fmt"
	"io"
	"math/bits"
)

// THRBYTES is the fixed width, in bytes, of each threshold record.
const THRBYTES = 5

// ssaRecordBytes is the width, in bytes, of each half of a .ssa/.esa pair.
const ssaRecordBytes = 5

// Samples holds the three per-run vectors the MS query engine reads.
type Samples struct {
	Start      []uint64 // samples_start[j], unpacked
	Last       *Packed  // samples_last[j], width ceil(log2 n)
	Thresholds []uint64 // thresholds[j]
}

// Packed is a fixed-width integer vector stored across []uint64 words,
// in the spirit of sdsl::int_vector<>'s manual bit-packing but written out
// explicitly over Go's native word type.
type Packed struct {
	words []uint64
	width uint
	n     int
}

// NewPacked allocates a packed vector of n fields, each width bits wide.
func NewPacked(n int, width uint) *Packed {
	if width == 0 || width > 64 {
		panic(fmt.Sprintf("samples: invalid packed width %d", width))
	}
	total := uint64(n) * uint64(width)
	numWords := (total + 63) / 64
	return &Packed{words: make([]uint64, numWords), width: width, n: n}
}

// Width returns the field width in bits.
func (p *Packed) Width() uint { return p.width }

// Len returns the number of packed fields.
func (p *Packed) Len() int { return p.n }

// Set stores value into field i. value must fit in Width() bits.
func (p *Packed) Set(i int, value uint64) {
	if value>>p.width != 0 {
		panic(fmt.Sprintf("samples: value %d does not fit in %d-bit field", value, p.width))
	}
	bitPos := uint64(i) * uint64(p.width)
	word := bitPos / 64
	offset := bitPos % 64

	mask := uint64(1)<<p.width - 1
	if p.width == 64 {
		mask = ^uint64(0)
	}
	p.words[word] &^= mask << offset
	p.words[word] |= (value & mask) << offset

	spill := int64(offset) + int64(p.width) - 64
	if spill > 0 {
		p.words[word+1] &^= mask >> (uint64(p.width) - uint64(spill))
		p.words[word+1] |= value >> (uint64(p.width) - uint64(spill))
	}
}

// Get returns the value stored at field i.
func (p *Packed) Get(i int) uint64 {
	bitPos := uint64(i) * uint64(p.width)
	word := bitPos / 64
	offset := bitPos % 64

	mask := uint64(1)<<p.width - 1
	if p.width == 64 {
		mask = ^uint64(0)
	}
	v := (p.words[word] >> offset) & mask

	spill := int64(offset) + int64(p.width) - 64
	if spill > 0 {
		lowBits := uint64(p.width) - uint64(spill)
		v |= (p.words[word+1] & (uint64(1)<<uint64(spill) - 1)) << lowBits
	}
	return v
}

// BitWidth returns ceil(log2(n)), the minimum field width able to hold any
// value in [0, n). Matches ms_pointers.hpp's log_n computed via
// bitsize(n-1).
func BitWidth(n uint64) uint {
	if n <= 1 {
		return 1
	}
	return uint(bits.Len64(n - 1))
}

// ReadStart loads samples_start from a <prefix>.ssa stream: r pairs of
// 5-byte little-endian integers, keeping only the second element of each
// pair per §6 ("samples_start[i] = y==0 ? n-1 : y-1").
func ReadStart(r io.Reader, count int, n uint64) ([]uint64, error) {
	_, vals, err := ReadPairs(r, count, n)
	if err != nil {
		return nil, fmt.Errorf("samples: reading .ssa: %w", err)
	}
	return vals, nil
}

// ReadLast loads samples_last from a <prefix>.esa stream into a packed
// vector of width BitWidth(n), applying the same pair-to-value rule as
// ReadStart. Returns an error if the stream does not contain exactly count
// pairs (the §7 "shape mismatch" fatal assertion).
func ReadLast(r io.Reader, count int, n uint64) (*Packed, error) {
	_, vals, err := ReadPairs(r, count, n)
	if err != nil {
		return nil, fmt.Errorf("samples: reading .esa: %w", err)
	}
	packed := NewPacked(count, BitWidth(n))
	for i, v := range vals {
		packed.Set(i, v)
	}
	return packed, nil
}

// ReadPairs reads exactly count pairs of 5-byte little-endian integers,
// returning both halves: xs (the run-index field, advisory per §9) and the
// y-half transformed per §6's "samples_start[i] = y==0 ? n-1 : y-1" rule.
// Exported so Build's strict-ordering option can inspect xs without a
// second pass.
func ReadPairs(r io.Reader, count int, n uint64) (xs, ys []uint64, err error) {
	br := bufio.NewReader(r)
	xs = make([]uint64, count)
	ys = make([]uint64, count)
	buf := make([]byte, ssaRecordBytes)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, nil, fmt.Errorf("record %d (x): %w", i, err)
		}
		xs[i] = le40(buf)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, nil, fmt.Errorf("record %d (y): %w", i, err)
		}
		y := le40(buf)
		if y == 0 {
			ys[i] = n - 1
		} else {
			ys[i] = y - 1
		}
	}
	extra := make([]byte, 1)
	if nRead, readErr := br.Read(extra); nRead > 0 || readErr == nil {
		return nil, nil, fmt.Errorf("trailing data after %d records", count)
	}
	return xs, ys, nil
}

// ReadThresholds loads the thresholds vector from a <prefix>.thr_pos
// stream: size/THRBYTES tightly packed THRBYTES-wide little-endian integers.
// A size that is not a multiple of THRBYTES is rejected with an error (the
// §7 "corrupt .thr_pos" check; Build also applies it to the file's stat
// size before opening it).
func ReadThresholds(r io.Reader, size int64) ([]uint64, error) {
	if size%THRBYTES != 0 {
		return nil, fmt.Errorf("samples: .thr_pos size %d not a multiple of %d", size, THRBYTES)
	}
	count := int(size / THRBYTES)
	br := bufio.NewReader(r)
	out := make([]uint64, count)
	buf := make([]byte, THRBYTES)
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("samples: reading .thr_pos record %d: %w", i, err)
		}
		out[i] = le40(buf)
	}
	return out, nil
}

func le40(b []byte) uint64 {
	var v uint64
	for i := 0; i < THRBYTES; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
