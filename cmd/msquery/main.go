// Command msquery is a thin harness around the rindex package: build an
// index from a prefix once, then answer matching-statistics queries for
// one or many patterns. The construction pipeline and the harness itself
// are explicitly out of scope for rindex; this is the minimal passthrough
// that exercises it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/vikshiv/pfp-thresholds/bitvec"
	"github.com/vikshiv/pfp-thresholds/rindex"
)

func main() {
	var (
		prefix     = flag.String("prefix", "", "path prefix of the .bwt/.ssa/.esa/.thr_pos files")
		patterns   = flag.String("patterns", "", "file of newline-separated patterns (default: positional argument)")
		block      = flag.Uint64("block", 2, "B, the RLBWT block parameter")
		hybBitvec  = flag.Bool("sparse-hyb", false, "use the sparse_hyb bitvector backend instead of sparse_sd")
		strictSort = flag.Bool("strict", false, "verify .ssa/.esa run-index ordering at build")
	)
	flag.Parse()

	if *prefix == "" {
		fmt.Fprintln(os.Stderr, "msquery: -prefix is required")
		os.Exit(2)
	}

	variant := bitvec.SD
	if *hybBitvec {
		variant = bitvec.Hyb
	}

	opts := []rindex.BuildOption{rindex.WithBlock(*block), rindex.WithVariant(variant)}
	if *strictSort {
		opts = append(opts, rindex.WithStrictOrdering())
	}

	idx, stats, err := rindex.Build(*prefix, opts...)
	if err != nil {
		log.Fatalf("msquery: build failed: %v", err)
	}

	log.Printf("n=%s r=%s rate=%.2f log2(r)=%d log2(n)=%d elapsed=%s",
		humanize.Comma(int64(stats.N)), humanize.Comma(int64(stats.R)),
		stats.Rate, stats.LogR, stats.LogN, stats.Elapsed)

	ps, err := loadPatterns(*patterns, flag.Args())
	if err != nil {
		log.Fatalf("msquery: %v", err)
	}

	results := idx.QueryAll(context.Background(), ps)
	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for _, ms := range results {
		printMS(w, ms)
	}
}

func loadPatterns(path string, positional []string) ([][]byte, error) {
	if path == "" {
		if len(positional) == 0 {
			return nil, fmt.Errorf("no pattern given: pass -patterns or a positional pattern argument")
		}
		out := make([][]byte, len(positional))
		for i, p := range positional {
			out[i] = []byte(p)
		}
		return out, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var ps [][]byte
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		ps = append(ps, []byte(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ps, nil
}

func printMS(w *bufio.Writer, ms []uint64) {
	parts := make([]string, len(ms))
	for i, v := range ms {
		parts[i] = fmt.Sprintf("%d", v)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}
