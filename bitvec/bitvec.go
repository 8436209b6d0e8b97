// Package bitvec implements the sparse-bitvector contract (C1) that backs
// every positional index in the rest of this module: the RLBWT's run
// boundaries, its per-letter run indicators, and the run-heads string's
// per-byte occurrence indicators all reduce to rank1/select1/access over a
// 0/1 sequence.
//
// Two implementations satisfy the Sparse interface, selectable at
// construction time the way the original r-index template-parameterizes
// over sparse_sd_vector / sparse_hyb_vector:
//
//   - SDVector ("sparse_sd", the default): backed by rsdic.RSDic, which
//     already provides O(1) rank/select.
//   - HybVector ("sparse_hyb"): backed by a plain bits-and-blooms/bitset.BitSet
//     with a hand-built two-level rank index and a sampled select index on
//     top, trading a little more space for a simpler implementation.
package bitvec

import (
	"fmt"
	"sort"

	"github.com/bits-and-blooms/bitset"
	"github.com/hillbig/rsdic"
)

// Sparse is the rank/select/access contract of spec §4.1.
type Sparse interface {
	// Size returns N, the length of the bit sequence.
	Size() uint64
	// Ones returns the number of set bits.
	Ones() uint64
	// Rank1 returns |{j<i : B[j]=1}|, for i in [0,Size()].
	Rank1(i uint64) uint64
	// Select1 returns the position of the p-th one bit (p in [0,Ones())).
	Select1(p uint64) uint64
	// Access returns B[i].
	Access(i uint64) bool
}

// Variant identifies which Sparse backend to build.
type Variant int

const (
	// SD is the default backend, rsdic.RSDic.
	SD Variant = iota
	// Hyb is the alternative, denser-but-simpler backend.
	Hyb
)

// Build materializes a Sparse bitvector of the chosen variant from an
// explicit sequence of bits. Callers that already know the final length
// (run-length decoding a known number of runs, for instance) should prefer
// this over the incremental Builder.
func Build(variant Variant, bits []bool) Sparse {
	switch variant {
	case Hyb:
		return newHybVector(bits)
	default:
		return newSDVector(bits)
	}
}

// Ones returns the positions of every set bit, in ascending order. Used by
// persistence code that needs a backend-agnostic, compact encoding of a
// Sparse bitvector (a list of r positions rather than n dense bits).
func Ones(s Sparse) []uint64 {
	out := make([]uint64, s.Ones())
	for p := range out {
		out[p] = s.Select1(uint64(p))
	}
	return out
}

// BuildFromOnes reconstructs a Sparse bitvector of the given size from the
// ascending positions of its set bits, the inverse of Ones.
func BuildFromOnes(variant Variant, size uint64, ones []uint64) Sparse {
	bits := make([]bool, size)
	for _, p := range ones {
		bits[p] = true
	}
	return Build(variant, bits)
}

// Builder accumulates bits one at a time, mirroring the PushBack-style
// construction rsdic.RSDic itself exposes. Used where the total length
// isn't known up front (streaming run-length decode).
type Builder struct {
	variant Variant
	rs      *rsdic.RSDic
	buf     []bool
}

// NewBuilder creates an empty Builder for the given variant.
func NewBuilder(variant Variant) *Builder {
	b := &Builder{variant: variant}
	if variant != Hyb {
		b.rs = rsdic.New()
	}
	return b
}

// PushBack appends bit to the end of the sequence under construction.
func (b *Builder) PushBack(bit bool) {
	if b.rs != nil {
		b.rs.PushBack(bit)
		return
	}
	b.buf = append(b.buf, bit)
}

// Build finalizes the accumulated bits into an immutable Sparse bitvector.
func (b *Builder) Build() Sparse {
	if b.rs != nil {
		return (*SDVector)(b.rs)
	}
	return newHybVector(b.buf)
}

// SDVector is the default sparse bitvector, a thin wrapper around
// rsdic.RSDic — the same primitive the teacher's rloc package uses as the
// sole succinct structure behind its range locator.
type SDVector rsdic.RSDic

func newSDVector(bits []bool) Sparse {
	rs := rsdic.New()
	for _, b := range bits {
		rs.PushBack(b)
	}
	return (*SDVector)(rs)
}

func (v *SDVector) rs() *rsdic.RSDic { return (*rsdic.RSDic)(v) }

func (v *SDVector) Size() uint64 { return v.rs().Num() }
func (v *SDVector) Ones() uint64 { return v.rs().OneNum() }
func (v *SDVector) Rank1(i uint64) uint64 {
	return v.rs().Rank(i, true)
}
func (v *SDVector) Select1(p uint64) uint64 {
	return v.rs().Select(p, true)
}
func (v *SDVector) Access(i uint64) bool {
	return v.rs().Bit(i)
}

const hybBlockBits = 64
const hybSampleRate = 256 // one absolute select sample per 256 one-bits

// HybVector is the alternative sparse bitvector: a dense bits-and-blooms
// BitSet for storage plus a hand-rolled two-level rank index (one
// cumulative count per 64-bit block) and a periodically sampled select
// index, in the spirit of the block-sampling scheme rsdic uses internally
// but simple enough to read in one file.
type HybVector struct {
	bs         *bitset.BitSet
	n          uint64
	ones       uint64
	blockRank  []uint64 // blockRank[k] = Rank1(k*64), len = numBlocks+1
	selSamples []uint64 // selSamples[k] = position of the (k*hybSampleRate)-th one-bit
}

func newHybVector(bits []bool) *HybVector {
	n := uint64(len(bits))
	bs := bitset.New(uint(n))
	numBlocks := (n + hybBlockBits - 1) / hybBlockBits
	blockRank := make([]uint64, numBlocks+1)
	var selSamples []uint64

	var ones uint64
	for i, b := range bits {
		if uint64(i)%hybBlockBits == 0 {
			blockRank[uint64(i)/hybBlockBits] = ones
		}
		if b {
			if ones%hybSampleRate == 0 {
				selSamples = append(selSamples, uint64(i))
			}
			bs.Set(uint(i))
			ones++
		}
	}
	blockRank[numBlocks] = ones

	return &HybVector{
		bs:         bs,
		n:          n,
		ones:       ones,
		blockRank:  blockRank,
		selSamples: selSamples,
	}
}

func (v *HybVector) Size() uint64 { return v.n }
func (v *HybVector) Ones() uint64 { return v.ones }

func (v *HybVector) Access(i uint64) bool {
	if i >= v.n {
		panic(fmt.Sprintf("bitvec: Access(%d) out of range [0,%d)", i, v.n))
	}
	return v.bs.Test(uint(i))
}

// Rank1 counts the one-bits in B[0,i) by combining the block-level sample
// with a linear scan of the remaining (<64) bits in that block.
func (v *HybVector) Rank1(i uint64) uint64 {
	if i >= v.n {
		return v.ones
	}
	block := i / hybBlockBits
	rank := v.blockRank[block]
	for j := block * hybBlockBits; j < i; j++ {
		if v.bs.Test(uint(j)) {
			rank++
		}
	}
	return rank
}

// Select1 finds the position of the p-th one bit by binary-searching the
// sampled select index for a starting block, then scanning forward.
func (v *HybVector) Select1(p uint64) uint64 {
	if p >= v.ones {
		return v.n
	}
	sampleIdx := p / hybSampleRate
	lo := v.selSamples[sampleIdx] / hybBlockBits
	hi := uint64(len(v.blockRank) - 1)
	if sampleIdx+1 < uint64(len(v.selSamples)) {
		hi = v.selSamples[sampleIdx+1]/hybBlockBits + 1
	}
	// The block holding the p-th one is the last block in [lo,hi) whose
	// cumulative rank does not exceed p.
	k := sort.Search(int(hi-lo), func(k int) bool { return v.blockRank[lo+uint64(k)] > p })
	block := lo + uint64(k) - 1
	rank := v.blockRank[block]

	for i := block * hybBlockBits; i < v.n; i++ {
		if v.bs.Test(uint(i)) {
			if rank == p {
				return i
			}
			rank++
		}
	}
	return v.n
}
