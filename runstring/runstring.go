// Package runstring implements the run-heads string (C2): the ordered
// sequence of run-head characters, with O(1) access and rank_c/select_c
// delegated to one bitvec.Sparse indicator vector per alphabet byte — the
// same succinct primitive the RLBWT itself uses for its per-letter run
// indicators, rather than a second hand-rolled rank/select structure.
package runstring

import "github.com/vikshiv/pfp-thresholds/bitvec"

const alphabetSize = 256

// String is the run-heads sequence S[0..r) over bytes 0..255.
type String struct {
	heads   []byte
	byChar  [alphabetSize]bitvec.Sparse // byChar[c].Access(i) == (heads[i] == c)
	variant bitvec.Variant
}

// Build constructs a run-heads string from the ordered head bytes.
func Build(variant bitvec.Variant, heads []byte) *String {
	r := len(heads)
	indicator := make([][]bool, alphabetSize)
	for c := range indicator {
		indicator[c] = make([]bool, r)
	}
	for i, c := range heads {
		indicator[c][i] = true
	}

	s := &String{
		heads:   append([]byte(nil), heads...),
		variant: variant,
	}
	for c := 0; c < alphabetSize; c++ {
		s.byChar[c] = bitvec.Build(variant, indicator[c])
	}
	return s
}

// Size returns r, the number of runs.
func (s *String) Size() uint64 { return uint64(len(s.heads)) }

// Access returns the run-head character at run index i.
func (s *String) Access(i uint64) byte { return s.heads[i] }

// RankC returns |{j<i : S[j]=c}|.
func (s *String) RankC(i uint64, c byte) uint64 {
	return s.byChar[c].Rank1(i)
}

// SelectC returns the run index of the p-th occurrence of c (p in
// [0, CountC(c))).
func (s *String) SelectC(p uint64, c byte) uint64 {
	return s.byChar[c].Select1(p)
}

// CountC returns the number of runs headed by c.
func (s *String) CountC(c byte) uint64 {
	return s.byChar[c].Ones()
}

// Heads returns the raw run-head byte sequence, for callers that need to
// persist or re-derive the string without rebuilding from a Sparse variant
// twice.
func (s *String) Heads() []byte {
	return append([]byte(nil), s.heads...)
}
