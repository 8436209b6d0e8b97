package samples

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackedSetGet(t *testing.T) {
	r := rand.New(rand.NewSource(21))
	for _, width := range []uint{1, 5, 17, 40, 63, 64} {
		n := 200
		p := NewPacked(n, width)
		want := make([]uint64, n)
		mask := uint64(1)<<width - 1
		if width == 64 {
			mask = ^uint64(0)
		}
		for i := range want {
			v := r.Uint64() & mask
			want[i] = v
			p.Set(i, v)
		}
		for i, v := range want {
			require.Equal(t, v, p.Get(i), "width=%d i=%d", width, i)
		}
	}
}

func TestBitWidth(t *testing.T) {
	cases := map[uint64]uint{
		0: 1, 1: 1, 2: 1, 3: 2, 4: 2, 5: 3, 8: 3, 9: 4, 1024: 10,
	}
	for n, want := range cases {
		require.Equal(t, want, BitWidth(n), "n=%d", n)
	}
}

func le40Bytes(v uint64) []byte {
	b := make([]byte, 5)
	for i := 0; i < 5; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}

func TestReadPairsTransform(t *testing.T) {
	var buf bytes.Buffer
	n := uint64(100)
	pairs := [][2]uint64{{0, 0}, {1, 1}, {2, 50}}
	for _, p := range pairs {
		buf.Write(le40Bytes(p[0]))
		buf.Write(le40Bytes(p[1]))
	}

	xs, ys, err := ReadPairs(&buf, len(pairs), n)
	require.NoError(t, err)
	require.Equal(t, []uint64{0, 1, 2}, xs)
	require.Equal(t, []uint64{n - 1, 0, 49}, ys)
}

func TestReadPairsShapeMismatch(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le40Bytes(0))
	buf.Write(le40Bytes(0))

	_, _, err := ReadPairs(&buf, 2, 10)
	require.Error(t, err)
}

func TestReadThresholds(t *testing.T) {
	var buf bytes.Buffer
	want := []uint64{0, 17, 4000000}
	for _, v := range want {
		buf.Write(le40Bytes(v))
	}

	got, err := ReadThresholds(&buf, int64(buf.Len()))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestReadThresholdsCorruptSize(t *testing.T) {
	_, err := ReadThresholds(bytes.NewReader(make([]byte, 7)), 7)
	require.Error(t, err)
}

func TestPackedOverflowPanics(t *testing.T) {
	p := NewPacked(1, 4)
	require.Panics(t, func() { p.Set(0, 16) })
}
