package rindex

import (
	"context"
	"runtime"
	"sync"
)

// Query runs the backward-scan MS algorithm over pattern and returns one
// text position per pattern character. Translated line-for-line from
// ms_pointers.hpp::query, including its documented edge cases.
func (idx *Index) Query(pattern []byte) []uint64 {
	m := len(pattern)
	ms := make([]uint64, m)
	if m == 0 {
		return ms
	}

	n := idx.Size()
	r := idx.NumberOfRuns()

	pos := n - 1
	sample := (idx.Samples.Last.Get(int(r-1)) + 1) % n

	for i := 0; i < m; i++ {
		c := pattern[m-1-i]

		switch {
		case idx.BWT.NumberOfLetter(c) == 0:
			// Character absent from L; undefined by the algorithm's
			// contract, emit the sentinel.
			sample = 0

		case pos < n && idx.BWT.Access(pos) == c:
			sample = (sample + n - 1) % n

		default:
			rnk := idx.BWT.Rank(pos, c)

			var candPos, candSample, threshold uint64
			if rnk < idx.BWT.NumberOfLetter(c) {
				j := idx.BWT.Select(rnk, c)
				runJ := idx.BWT.RunOfPosition(j)
				candPos = j
				candSample = idx.Samples.Start[runJ]
				threshold = idx.Samples.Thresholds[runJ]
			} else {
				// No down candidate: force the up candidate below.
				threshold = n + 1
			}

			if pos < threshold {
				rnkUp := rnk - 1
				j := idx.BWT.Select(rnkUp, c)
				runJ := idx.BWT.RunOfPosition(j)
				candPos = j
				candSample = idx.Samples.Last.Get(int(runJ))
			}

			pos = candPos
			sample = candSample
		}

		ms[m-1-i] = sample
		pos = idx.LF(pos, c)
	}

	return ms
}

// QueryAll runs Query over every pattern, fanning independent patterns out
// across a bounded worker pool — concurrency across patterns is not
// excluded by the single-pattern concurrency non-goal. ctx cancels between
// patterns, not mid-pattern (a single Query call is a CPU-bound loop of
// length m and is not itself cancellable).
func (idx *Index) QueryAll(ctx context.Context, patterns [][]byte) [][]uint64 {
	results := make([][]uint64, len(patterns))

	workers := runtime.GOMAXPROCS(0)
	if workers > len(patterns) {
		workers = len(patterns)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = idx.Query(patterns[i])
			}
		}()
	}

loop:
	for i := range patterns {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break loop
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
