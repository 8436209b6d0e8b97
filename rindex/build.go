package rindex

import (
	"fmt"
	"os"
	"time"

	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/rlbwt"
	"github.com/vikshiv/pfp-thresholds/samples"
)

// BuildStats carries the construction diagnostics: n, the number of BWT
// equal-letter runs r, the rate n/r, ceil(log2 r), ceil(log2 n) and the
// elapsed time.
type BuildStats struct {
	N       uint64
	R       uint64
	LogR    uint
	LogN    uint
	Rate    float64
	Elapsed time.Duration
}

// BuildOption configures Build.
type BuildOption func(*buildConfig)

type buildConfig struct {
	block       uint64
	variant     bitvec.Variant
	strictOrder bool
}

// WithBlock sets B, the RLBWT's main bitvector block parameter (default 2).
func WithBlock(b uint64) BuildOption {
	return func(c *buildConfig) { c.block = b }
}

// WithVariant selects the sparse bitvector backend (default bitvec.SD).
func WithVariant(v bitvec.Variant) BuildOption {
	return func(c *buildConfig) { c.variant = v }
}

// WithStrictOrdering enables the optional check that .ssa/.esa run-index
// fields (x) increase monotonically, per the §9 open question resolution.
func WithStrictOrdering() BuildOption {
	return func(c *buildConfig) { c.strictOrder = true }
}

// Build reads <prefix>.bwt, <prefix>.ssa, <prefix>.esa and <prefix>.thr_pos
// and constructs a complete Index, following the six steps of §4.6.
func Build(prefix string, opts ...BuildOption) (*Index, BuildStats, error) {
	start := time.Now()

	cfg := buildConfig{block: rlbwt.DefaultBlock, variant: bitvec.SD}
	for _, opt := range opts {
		opt(&cfg)
	}

	bwtBytes, err := os.ReadFile(prefix + ".bwt")
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("rindex: opening %s.bwt: %w", prefix, err)
	}

	bwt, err := rlbwt.FromBWTBytes(bwtBytes, cfg.block, cfg.variant)
	if err != nil {
		return nil, BuildStats{}, fmt.Errorf("rindex: constructing RLBWT: %w", err)
	}

	n := bwt.Size()
	r := bwt.NumberOfRuns()
	f, terminatorPosition := buildF(bwt)

	ss, err := readSamples(prefix, n, r, cfg.strictOrder)
	if err != nil {
		return nil, BuildStats{}, err
	}

	idx := &Index{
		BWT:                bwt,
		F:                  f,
		TerminatorPosition: terminatorPosition,
		Samples:            ss,
		variant:            cfg.variant,
		block:              cfg.block,
	}

	logR := samples.BitWidth(r)
	logN := samples.BitWidth(n)
	rate := 0.0
	if r > 0 {
		rate = float64(n) / float64(r)
	}

	stats := BuildStats{
		N:       n,
		R:       r,
		LogR:    logR,
		LogN:    logN,
		Rate:    rate,
		Elapsed: time.Since(start),
	}
	return idx, stats, nil
}

func readSamples(prefix string, n, r uint64, strict bool) (*samples.Samples, error) {
	ssaFile, err := os.Open(prefix + ".ssa")
	if err != nil {
		return nil, fmt.Errorf("rindex: opening %s.ssa: %w", prefix, err)
	}
	defer ssaFile.Close()

	xs, start, err := samples.ReadPairs(ssaFile, int(r), n)
	if err != nil {
		return nil, fmt.Errorf("rindex: reading %s.ssa: %w", prefix, err)
	}
	if strict {
		if err := checkMonotonic(xs); err != nil {
			return nil, fmt.Errorf("rindex: %s.ssa: %w", prefix, err)
		}
	}

	esaFile, err := os.Open(prefix + ".esa")
	if err != nil {
		return nil, fmt.Errorf("rindex: opening %s.esa: %w", prefix, err)
	}
	defer esaFile.Close()

	exs, lastVals, err := samples.ReadPairs(esaFile, int(r), n)
	if err != nil {
		return nil, fmt.Errorf("rindex: reading %s.esa: %w", prefix, err)
	}
	if strict {
		if err := checkMonotonic(exs); err != nil {
			return nil, fmt.Errorf("rindex: %s.esa: %w", prefix, err)
		}
	}
	last := samples.NewPacked(int(r), samples.BitWidth(n))
	for i, v := range lastVals {
		if v >= n {
			return nil, fmt.Errorf("rindex: %s.esa record %d: sample %d out of range [0,%d)", prefix, i, v, n)
		}
		last.Set(i, v)
	}

	thrInfo, err := os.Stat(prefix + ".thr_pos")
	if err != nil {
		return nil, fmt.Errorf("rindex: stating %s.thr_pos: %w", prefix, err)
	}
	if thrInfo.Size()%samples.THRBYTES != 0 {
		return nil, fmt.Errorf("rindex: %s.thr_pos size %d not a multiple of %d", prefix, thrInfo.Size(), samples.THRBYTES)
	}
	thrFile, err := os.Open(prefix + ".thr_pos")
	if err != nil {
		return nil, fmt.Errorf("rindex: opening %s.thr_pos: %w", prefix, err)
	}
	defer thrFile.Close()

	thresholds, err := samples.ReadThresholds(thrFile, thrInfo.Size())
	if err != nil {
		return nil, fmt.Errorf("rindex: reading %s.thr_pos: %w", prefix, err)
	}

	return &samples.Samples{Start: start, Last: last, Thresholds: thresholds}, nil
}

func checkMonotonic(xs []uint64) error {
	for i := 1; i < len(xs); i++ {
		if xs[i] <= xs[i-1] {
			return fmt.Errorf("run-index field not monotonic at record %d (%d <= %d)", i, xs[i], xs[i-1])
		}
	}
	return nil
}
