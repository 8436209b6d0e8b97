package rlbwt

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vikshiv/pfp-thresholds/bitvec"
)

// randomBWT builds a byte slice with exactly one Terminator and otherwise
// bytes drawn from a small alphabet, runs merged the way a real RLBWT
// would never see two adjacent equal-but-distinct run heads.
func randomBWT(n int, r *rand.Rand) []byte {
	alphabet := []byte{'A', 'C', 'G', 'T'}
	l := make([]byte, n)
	termAt := r.Intn(n)
	for i := range l {
		if i == termAt {
			l[i] = Terminator
			continue
		}
		l[i] = alphabet[r.Intn(len(alphabet))]
	}
	return l
}

func bruteRank(l []byte, i uint64, c byte) uint64 {
	var rank uint64
	for j := uint64(0); j < i; j++ {
		if remap(l[j]) == c {
			rank++
		}
	}
	return rank
}

func testBoth(t *testing.T, l []byte, fn func(*testing.T, *RLBWT, []byte)) {
	for _, variant := range []bitvec.Variant{bitvec.SD, bitvec.Hyb} {
		b, err := FromBWTBytes(l, DefaultBlock, variant)
		require.NoError(t, err)
		fn(t, b, l)
	}
}

func TestAccessMatchesSource(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	l := randomBWT(500, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		require.Equal(t, uint64(len(l)), b.Size())
		for i := range l {
			require.Equal(t, remap(l[i]), b.Access(uint64(i)))
			require.Equal(t, b.RunOfPosition(uint64(i)), b.RunOfPosition(uint64(i)))
		}
	})
}

func TestRunOfPositionMonotonic(t *testing.T) {
	r := rand.New(rand.NewSource(12))
	l := randomBWT(500, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		var last uint64
		for i := range l {
			j := b.RunOfPosition(uint64(i))
			require.GreaterOrEqual(t, j, last)
			require.Equal(t, b.Access(uint64(i)), b.Access(uint64(i))) // sanity: no panic
			last = j
		}
	})
}

func TestRankMatchesBruteForce(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	l := randomBWT(400, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		for _, c := range []byte{'A', 'C', 'G', 'T', Terminator} {
			for i := 0; i <= len(l); i += 5 {
				require.Equal(t, bruteRank(l, uint64(i), c), b.Rank(uint64(i), c), "rank(%d,%c)", i, c)
			}
		}
	})
}

func TestSelectRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(14))
	l := randomBWT(400, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		for _, c := range []byte{'A', 'C', 'G', 'T', Terminator} {
			count := b.NumberOfLetter(c)
			for p := uint64(0); p < count; p++ {
				pos := b.Select(p, c)
				require.Equal(t, c, b.Access(pos))
				require.Equal(t, p, b.Rank(pos, c))
			}
		}
	})
}

func TestInvariants(t *testing.T) {
	r := rand.New(rand.NewSource(15))
	l := randomBWT(333, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		var total uint64
		for c := 0; c < 256; c++ {
			total += b.NumberOfLetter(byte(c))
		}
		require.Equal(t, b.Size(), total)
		require.Equal(t, b.NumberOfRuns(), b.runHeads.Size())
	})
}

func TestEachMatchesSource(t *testing.T) {
	r := rand.New(rand.NewSource(16))
	l := randomBWT(200, r)
	testBoth(t, l, func(t *testing.T, b *RLBWT, l []byte) {
		var got bytes.Buffer
		b.Each(func(pos uint64, c byte) {
			require.Equal(t, uint64(got.Len()), pos)
			got.WriteByte(c)
		})
		want := make([]byte, len(l))
		for i, c := range l {
			want[i] = remap(c)
		}
		require.Equal(t, want, got.Bytes())
	})
}
