package rindex

import (
	"bytes"
	"math/rand"
	"sort"

	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/rlbwt"
	"github.com/vikshiv/pfp-thresholds/samples"
)

// The helpers in this file build a reference Index by brute force (full
// suffix array, full LCP array, thresholds derived from LCP range-minima)
// rather than from a .bwt/.ssa/.esa/.thr_pos pipeline. Computing thresholds
// this way is explicitly out of scope for production code (§1 non-goals),
// but a test-only fixture builder that brute-forces a reference structure
// to check the query engine against is the same strategy the teacher uses
// for its own property tests (random keys, brute-force comparator).

// buildSuffixArray sorts all rotations-as-suffixes of text by direct byte
// comparison. O(n^2 log n); fine for the small fixtures these tests use.
func buildSuffixArray(text []byte) []int {
	n := len(text)
	sa := make([]int, n)
	for i := range sa {
		sa[i] = i
	}
	sort.Slice(sa, func(i, j int) bool {
		return bytes.Compare(text[sa[i]:], text[sa[j]:]) < 0
	})
	return sa
}

// buildLCPArray computes LCP[i] = common prefix length of text[sa[i-1]:]
// and text[sa[i]:], with LCP[0] = 0.
func buildLCPArray(text []byte, sa []int) []int {
	n := len(sa)
	lcp := make([]int, n)
	for i := 1; i < n; i++ {
		lcp[i] = commonPrefixLen(text[sa[i-1]:], text[sa[i]:])
	}
	return lcp
}

func commonPrefixLen(a, b []byte) int {
	i := 0
	for i < len(a) && i < len(b) && a[i] == b[i] {
		i++
	}
	return i
}

// lcpRangeMin returns LCP(text[sa[i]:], text[sa[j]:]) for i<j via a direct
// range-minimum scan of the LCP array (no sparse-table needed at this
// scale).
func lcpRangeMin(lcp []int, i, j int) int {
	if i >= j {
		return 1 << 30
	}
	m := lcp[i+1]
	for k := i + 2; k <= j; k++ {
		if lcp[k] < m {
			m = lcp[k]
		}
	}
	return m
}

type referenceRun struct {
	head  byte
	start int // row (= SA index) of the run's first character
	end   int // row of the run's last character, inclusive
}

// referenceFixture holds everything derived from a brute-force SA/LCP pass,
// used both to build an Index and to answer brute-force MS queries.
type referenceFixture struct {
	text []byte
	sa   []int
	lcp  []int
	l    []byte
	runs []referenceRun
}

func buildReferenceFixture(text []byte) *referenceFixture {
	sa := buildSuffixArray(text)
	lcp := buildLCPArray(text, sa)
	n := len(text)

	l := make([]byte, n)
	for i, s := range sa {
		if s == 0 {
			l[i] = rlbwt.Terminator
		} else {
			l[i] = text[s-1]
		}
	}

	var runs []referenceRun
	for i := 0; i < n; {
		j := i
		for j < n && l[j] == l[i] {
			j++
		}
		runs = append(runs, referenceRun{head: l[i], start: i, end: j - 1})
		i = j
	}

	return &referenceFixture{text: text, sa: sa, lcp: lcp, l: l, runs: runs}
}

// buildIndex assembles a rindex.Index from the fixture, computing
// samples_start/samples_last from the SA (as SA-1 mod n, the text position
// of the run's L character, the same value the .ssa/.esa loader produces)
// and thresholds via the LCP range-minimum switch-point rule described
// above.
func (f *referenceFixture) buildIndex(variant bitvec.Variant) *Index {
	n := uint64(len(f.text))
	r := len(f.runs)

	bwt, err := rlbwt.FromBWTBytes(f.l, rlbwt.DefaultBlock, variant)
	if err != nil {
		panic(err)
	}
	fcol, termPos := buildF(bwt)

	start := make([]uint64, r)
	lastVals := make([]uint64, r)
	thresholds := make([]uint64, r)

	lastRunOfChar := make(map[byte]int)
	for j, run := range f.runs {
		start[j] = (uint64(f.sa[run.start]) + n - 1) % n
		lastVals[j] = (uint64(f.sa[run.end]) + n - 1) % n

		prev, ok := lastRunOfChar[run.head]
		if !ok {
			thresholds[j] = 0
		} else {
			thresholds[j] = uint64(f.thresholdBetween(prev, j))
		}
		lastRunOfChar[run.head] = j
	}

	last := samples.NewPacked(r, samples.BitWidth(n))
	for i, v := range lastVals {
		last.Set(i, v)
	}

	return &Index{
		BWT:                bwt,
		F:                  fcol,
		TerminatorPosition: termPos,
		Samples:            &samples.Samples{Start: start, Last: last, Thresholds: thresholds},
		variant:            variant,
		block:              rlbwt.DefaultBlock,
	}
}

// thresholdBetween computes the threshold for the run at index curr, given
// the index of the preceding same-character run prev: the smallest gap row
// g where LCP(g, currRow) strictly exceeds LCP(prevRow, g), or currRow's
// own row if no such g exists (the whole gap favors the preceding run).
func (f *referenceFixture) thresholdBetween(prev, curr int) int {
	prevRow := f.runs[prev].end
	currRow := f.runs[curr].start
	for g := prevRow + 1; g < currRow; g++ {
		up := lcpRangeMin(f.lcp, prevRow, g)
		down := lcpRangeMin(f.lcp, g, currRow)
		if down > up {
			return g
		}
	}
	return currRow
}

// bruteForceBestLen computes, for each pattern position k, the longest
// common prefix achievable between pattern[k:] and any text suffix
// beginning with pattern[k], by exhaustive scan. Returns -1 at positions
// where the character never occurs in the text.
func (f *referenceFixture) bruteForceBestLen(pattern []byte) []int {
	best := make([]int, len(pattern))
	for k := range pattern {
		c := pattern[k]
		bestLen := -1
		for pos := 0; pos < len(f.text); pos++ {
			if f.text[pos] != c {
				continue
			}
			l := commonPrefixLen(f.text[pos:], pattern[k:])
			if l > bestLen {
				bestLen = l
			}
		}
		best[k] = bestLen
	}
	return best
}

// randomTextWithTerminator builds a random byte slice over a small
// alphabet with exactly one embedded TERMINATOR, for property tests.
func randomTextWithTerminator(n int, r *rand.Rand) []byte {
	alphabet := []byte{'A', 'C', 'G', 'T'}
	text := make([]byte, n)
	termAt := n - 1
	for i := range text {
		if i == termAt {
			text[i] = rlbwt.Terminator
			continue
		}
		text[i] = alphabet[r.Intn(len(alphabet))]
	}
	return text
}
