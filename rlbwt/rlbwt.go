// Package rlbwt implements the run-length encoded BWT (C3): access, rank,
// select and run-of-position in space proportional to the number of runs,
// not the text length. Translated from the constructor and derived
// operations of original_source/include/ms/ms_rle_string.hpp (which itself
// extends the unseen base rle_string<> — this port makes the base class's
// run-of-position/rank/select bookkeeping explicit via a per-run absolute
// start-position array, since the exact internal encoding of the upstream
// base class is not part of the retrieved reference material).
package rlbwt

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/runstring"
)

// Terminator is the reserved end-of-text sentinel byte. Byte 0 must never
// appear in a BWT; callers remap it (and any byte <= Terminator) to this
// value during construction, per spec §3.
const Terminator byte = 1

// DefaultBlock is B, the block parameter of the main run-boundary
// bitvector (spec §6 configuration).
const DefaultBlock = 2

// RLBWT is the run-length encoded BWT L[0..n).
type RLBWT struct {
	n, r       uint64
	block      uint64
	runHeads   *runstring.String
	runEnds    bitvec.Sparse // length n, marks the last position of every B-th run
	runsPerLet [256]bitvec.Sparse
	runStarts  []uint64 // absolute starting L-position of each run, len r
	variant    bitvec.Variant
}

// Size returns n, the length of L.
func (b *RLBWT) Size() uint64 { return b.n }

// Block returns B, the run-boundary bitvector's block parameter.
func (b *RLBWT) Block() uint64 { return b.block }

// BitvecVariant returns which bitvec.Variant backs this RLBWT's internal
// sparse bitvectors.
func (b *RLBWT) BitvecVariant() bitvec.Variant { return b.variant }

// HeadBytes returns the raw r-byte run-head sequence, for persistence.
func (b *RLBWT) HeadBytes() []byte { return b.runHeads.Heads() }

// RunStarts returns the absolute starting L-position of each run, for
// persistence.
func (b *RLBWT) RunStarts() []uint64 { return append([]uint64(nil), b.runStarts...) }

// RunEnds returns the block-marker bitvector described in spec §3.
func (b *RLBWT) RunEnds() bitvec.Sparse { return b.runEnds }

// RunsPerLetter returns the per-letter run-indicator bitvector for c.
func (b *RLBWT) RunsPerLetter(c byte) bitvec.Sparse { return b.runsPerLet[c] }

// FromComponents reconstructs an RLBWT directly from its already-decoded
// parts, skipping the run-length scan — used by rindex's loader, which
// persists these parts rather than the raw .bwt bytes.
func FromComponents(n, block uint64, variant bitvec.Variant, headBytes []byte, runStarts []uint64, runEndsOnes []uint64, perLetterOnes [256][]uint64) (*RLBWT, error) {
	r := uint64(len(headBytes))
	if uint64(len(runStarts)) != r {
		return nil, fmt.Errorf("rlbwt: %d run starts, want %d", len(runStarts), r)
	}

	var runsPerLet [256]bitvec.Sparse
	var total uint64
	for c := 0; c < 256; c++ {
		count := perLetterCount(headBytes, byte(c), runStarts, n)
		runsPerLet[c] = bitvec.BuildFromOnes(variant, count, perLetterOnes[c])
		total += runsPerLet[c].Size()
	}
	if total != n {
		return nil, fmt.Errorf("rlbwt: reconstructed run lengths sum to %d, want %d", total, n)
	}

	return &RLBWT{
		n:          n,
		r:          r,
		block:      block,
		runHeads:   runstring.Build(variant, headBytes),
		runEnds:    bitvec.BuildFromOnes(variant, n, runEndsOnes),
		runsPerLet: runsPerLet,
		runStarts:  runStarts,
		variant:    variant,
	}, nil
}

// perLetterCount returns the total number of L-positions headed by c,
// i.e. the length runsPerLet[c] must have.
func perLetterCount(headBytes []byte, c byte, runStarts []uint64, n uint64) uint64 {
	var count uint64
	for j, h := range headBytes {
		if h != c {
			continue
		}
		end := n
		if j+1 < len(headBytes) {
			end = runStarts[j+1]
		}
		count += end - runStarts[j]
	}
	return count
}

// NumberOfRuns returns r.
func (b *RLBWT) NumberOfRuns() uint64 { return b.r }

// NumberOfLetter returns the number of occurrences of c in L.
func (b *RLBWT) NumberOfLetter(c byte) uint64 {
	return b.runsPerLet[c].Size()
}

// NumberOfRunsOfLetter returns the number of c-runs.
func (b *RLBWT) NumberOfRunsOfLetter(c byte) uint64 {
	return b.runHeads.CountC(c)
}

// RunOfPosition returns the index of the run containing absolute position i.
func (b *RLBWT) RunOfPosition(i uint64) uint64 {
	if i >= b.n {
		panic(fmt.Sprintf("rlbwt: RunOfPosition(%d) out of range [0,%d)", i, b.n))
	}
	block := b.runEnds.Rank1(i)
	lo := block * b.block
	hi := lo + b.block
	if hi > b.r {
		hi = b.r
	}
	// runStarts is ascending; the run containing i is within
	// [lo,hi) once fewer than `block` full B-run groups remain unresolved.
	j := sort.Search(int(hi-lo), func(k int) bool {
		return b.runStarts[lo+uint64(k)] > i
	})
	return lo + uint64(j) - 1
}

// Access returns L[i].
func (b *RLBWT) Access(i uint64) byte {
	return b.runHeads.Access(b.RunOfPosition(i))
}

// cumulativeBeforeRun returns the number of occurrences of c within
// runs[0,j), i.e. before the run at absolute index j.
func (b *RLBWT) cumulativeBeforeRun(j uint64, c byte) uint64 {
	k := b.runHeads.RankC(j, c)
	if k == 0 {
		return 0
	}
	return b.runsPerLet[c].Select1(k-1) + 1
}

// Rank returns |{j<i : L[j]=c}|, i in [0,n].
func (b *RLBWT) Rank(i uint64, c byte) uint64 {
	if i >= b.n {
		return b.NumberOfLetter(c)
	}
	j := b.RunOfPosition(i)
	base := b.cumulativeBeforeRun(j, c)
	if b.runHeads.Access(j) == c {
		base += i - b.runStarts[j]
	}
	return base
}

// Select returns the position of the p-th (0-indexed) occurrence of c in L.
func (b *RLBWT) Select(p uint64, c byte) uint64 {
	rel := b.runsPerLet[c].Rank1(p) // index, among c-runs only, of the run containing occurrence p
	j := b.runHeads.SelectC(rel, c)
	base := b.cumulativeBeforeRun(j, c)
	return b.runStarts[j] + (p - base)
}

// Each calls fn once per position of L in order, via run-length expansion.
// Used by callers that need a full pass over L (building F, for instance)
// without materializing the decompressed string.
func (b *RLBWT) Each(fn func(pos uint64, c byte)) {
	for j := uint64(0); j < b.r; j++ {
		start := b.runStarts[j]
		end := b.n
		if j+1 < b.r {
			end = b.runStarts[j+1]
		}
		c := b.runHeads.Access(j)
		for pos := start; pos < end; pos++ {
			fn(pos, c)
		}
	}
}

// remap maps byte values <= Terminator to Terminator, per spec §4.2 step 1.
func remap(c byte) byte {
	if c <= Terminator {
		return Terminator
	}
	return c
}

// FromHeadsAndLengths builds an RLBWT from the two-stream run-length
// representation of spec §4.2: an r-byte head sequence and r little-endian
// 5-byte run lengths.
func FromHeadsAndLengths(heads, lengths io.Reader, block uint64, variant bitvec.Variant) (*RLBWT, error) {
	headBytes, err := io.ReadAll(heads)
	if err != nil {
		return nil, fmt.Errorf("rlbwt: reading run heads: %w", err)
	}
	r := len(headBytes)

	runEndsBuilder := bitvec.NewBuilder(variant)
	perLetterBits := make([][]bool, 256)
	runStarts := make([]uint64, r)

	lr := bufio.NewReader(lengths)
	var n uint64
	lenBuf := make([]byte, 5)
	for i := 0; i < r; i++ {
		if _, err := io.ReadFull(lr, lenBuf); err != nil {
			return nil, fmt.Errorf("rlbwt: reading length of run %d: %w", i, err)
		}
		length := le40(lenBuf)
		if length == 0 {
			return nil, fmt.Errorf("rlbwt: run %d has zero length", i)
		}
		c := remap(headBytes[i])
		headBytes[i] = c

		runStarts[i] = n
		for k := uint64(0); k < length-1; k++ {
			runEndsBuilder.PushBack(false)
		}
		runEndsBuilder.PushBack(i%int(block) == int(block)-1)

		perLetterBits[c] = append(perLetterBits[c], make([]bool, length-1)...)
		perLetterBits[c] = append(perLetterBits[c], true)

		n += length
	}

	return assemble(headBytes, runStarts, n, block, variant, runEndsBuilder.Build(), perLetterBits)
}

// FromBWTBytes builds an RLBWT by run-length-encoding a raw BWT byte array —
// the representation <prefix>.bwt actually stores per spec §6.
func FromBWTBytes(l []byte, block uint64, variant bitvec.Variant) (*RLBWT, error) {
	n := uint64(len(l))
	if n == 0 {
		return nil, fmt.Errorf("rlbwt: empty BWT")
	}

	var headBytes []byte
	var runStarts []uint64
	perLetterBits := make([][]bool, 256)
	runEndsBuilder := bitvec.NewBuilder(variant)

	runIdx := 0
	i := uint64(0)
	for i < n {
		c := remap(l[i])
		start := i
		for i < n && remap(l[i]) == c {
			i++
		}
		length := i - start

		headBytes = append(headBytes, c)
		runStarts = append(runStarts, start)

		for k := uint64(0); k < length-1; k++ {
			runEndsBuilder.PushBack(false)
		}
		runEndsBuilder.PushBack(runIdx%int(block) == int(block)-1)

		perLetterBits[c] = append(perLetterBits[c], make([]bool, length-1)...)
		perLetterBits[c] = append(perLetterBits[c], true)

		runIdx++
	}

	return assemble(headBytes, runStarts, n, block, variant, runEndsBuilder.Build(), perLetterBits)
}

func assemble(headBytes []byte, runStarts []uint64, n, block uint64, variant bitvec.Variant, runEnds bitvec.Sparse, perLetterBits [][]bool) (*RLBWT, error) {
	r := uint64(len(headBytes))

	var total uint64
	var runsPerLet [256]bitvec.Sparse
	for c := 0; c < 256; c++ {
		runsPerLet[c] = bitvec.Build(variant, perLetterBits[c])
		total += runsPerLet[c].Size()
	}
	if total != n {
		return nil, fmt.Errorf("rlbwt: run lengths sum to %d, want %d", total, n)
	}

	return &RLBWT{
		n:          n,
		r:          r,
		block:      block,
		runHeads:   runstring.Build(variant, headBytes),
		runEnds:    runEnds,
		runsPerLet: runsPerLet,
		runStarts:  runStarts,
		variant:    variant,
	}, nil
}

func le40(b []byte) uint64 {
	var v uint64
	for i := 0; i < 5; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
