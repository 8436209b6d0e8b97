// Package rindex implements the r-index core (C5), the MS query engine
// (C6, in query.go) and the builder/loader (C7, in build.go and
// persist.go). Grounded throughout on
// original_source/include/ms/ms_pointers.hpp.
package rindex

import (
	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/rlbwt"
	"github.com/vikshiv/pfp-thresholds/samples"
)

// Index is the complete, immutable MS index: an RLBWT, its F column, the
// terminator's position, and the per-run sample/threshold vectors.
type Index struct {
	BWT                *rlbwt.RLBWT
	F                  [257]uint64
	TerminatorPosition uint64
	Samples            *samples.Samples

	variant bitvec.Variant
	block   uint64
}

// buildF computes the F column and terminator position with a single pass
// over the decompressed BWT, following ms_pointers.hpp's build-time F-column
// loop: count occurrences per byte, remap the terminator, then convert to
// an exclusive prefix sum with F[0]=0.
func buildF(bwt *rlbwt.RLBWT) (f [257]uint64, terminatorPosition uint64) {
	var counts [256]uint64
	bwt.Each(func(pos uint64, c byte) {
		if c <= rlbwt.Terminator {
			terminatorPosition = pos
			counts[rlbwt.Terminator]++
			return
		}
		counts[c]++
	})

	var sum uint64
	for c := 0; c < 256; c++ {
		f[c] = sum
		sum += counts[c]
	}
	f[256] = sum
	return f, terminatorPosition
}

// LF implements the backward-step mapping LF(i,c) = F[c] + rank(i,c).
// Not defensive: c is not checked against L; for a c absent from L (which
// Query steps over after emitting its sentinel) the result is F[c].
func (idx *Index) LF(i uint64, c byte) uint64 {
	return idx.F[c] + idx.BWT.Rank(i, c)
}

// Size returns n, the BWT length.
func (idx *Index) Size() uint64 { return idx.BWT.Size() }

// NumberOfRuns returns r.
func (idx *Index) NumberOfRuns() uint64 { return idx.BWT.NumberOfRuns() }
