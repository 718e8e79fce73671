// Package scan implements passwand's parallel scan engine (spec.md §4.9):
// an indexed worker pool that opens entries under a main password,
// applies a predicate, and resolves the first in-order match while
// isolating per-entry open failures.
package scan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smattr/passwand/entry"
)

// Opener opens entry i and reports whether it matches, along with any
// error encountered while opening it. A non-nil Open entry is only valid
// when err == nil; callers that accept a match take ownership of it and
// must Release it.
type Opener func(ctx context.Context, i int, sealed *entry.Sealed) (open *entry.Open, matched bool, err error)

// Jobs clamps a requested worker count to [1, len(entries)].
func Jobs(requested, numEntries int) int {
	if numEntries <= 0 {
		return 1
	}
	if requested < 1 {
		requested = 1
	}
	if requested > numEntries {
		requested = numEntries
	}
	return requested
}

// FindFirst scans entries in document order using up to jobs worker
// goroutines, and returns the lowest-index entry for which open reports a
// match. Per spec.md §4.9: once a candidate is confirmed at position i,
// workers examining positions > i are cancelled; workers at positions < i
// are always allowed to finish, and can override the candidate with an
// earlier match. Per-entry open failures do not abort the scan; they are
// recorded in the returned Failures and the scan continues.
//
// The caller owns the returned Open entry (if any) and must Release it.
func FindFirst(ctx context.Context, entries []*entry.Sealed, jobs int, open Opener) (idx int, found *entry.Open, failures map[int]error) {
	if len(entries) == 0 {
		return -1, nil, nil
	}
	jobs = Jobs(jobs, len(entries))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	best := -1
	var bestOpen *entry.Open
	failures = make(map[int]error)

	work := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < jobs; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				select {
				case <-ctx.Done():
					// Only an index earlier than the current candidate is
					// still examined; everything else is drained unprocessed.
					mu.Lock()
					earlier := best != -1 && i < best
					mu.Unlock()
					if !earlier {
						continue
					}
				default:
				}
				o, matched, err := open(ctx, i, entries[i])
				mu.Lock()
				switch {
				case err != nil:
					failures[i] = err
				case matched && (best == -1 || i < best):
					// A strictly earlier match supersedes whatever
					// candidate we held before; the superseded one will
					// never be returned, so release it now. Since items
					// are fed to workers in index order, every index < i
					// has already been dispatched by the time i is
					// processed, so cancelling future dispatch here only
					// ever discards indices > i.
					if bestOpen != nil {
						bestOpen.Release()
					}
					best = i
					bestOpen = o
					cancel()
				case matched:
					o.Release() // a later, non-winning match
				}
				mu.Unlock()
			}
		}()
	}

	// Feed indices in order so the cancellation signal (raised once the
	// lowest surviving index is known) has the best chance of skipping
	// later work; workers still cooperatively check ctx before each unit.
	go func() {
		defer close(work)
		for i := range entries {
			select {
			case work <- i:
			case <-ctx.Done():
				return
			}
		}
	}()
	wg.Wait()

	if best == -1 {
		return -1, nil, failures
	}
	return best, bestOpen, failures
}

// CheckAll opens every entry under the main password (via open) using up
// to jobs worker goroutines, then applies classify to each successfully
// opened entry in parallel. Document order is preserved in the returned
// slice. Per-entry open failures are recorded and do not abort the scan.
func CheckAll[T any](ctx context.Context, entries []*entry.Sealed, jobs int, open Opener, classify func(*entry.Open) T) (results []T, failures map[int]error) {
	jobs = Jobs(jobs, len(entries))
	results = make([]T, len(entries))
	failures = make(map[int]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, sealed := range entries {
		i, sealed := i, sealed
		g.Go(func() error {
			o, _, err := open(gctx, i, sealed)
			if err != nil {
				mu.Lock()
				failures[i] = err
				mu.Unlock()
				return nil
			}
			defer o.Release()
			r := classify(o)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // classify/open never return an error to the group
	return results, failures
}
