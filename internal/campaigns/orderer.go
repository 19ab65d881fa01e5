package campaigns

import (
	"context"
	"log/slog"

	"afunding/internal/models"

	"golang.org/x/sync/errgroup"
)

// slot holds the outcome of one indexed read
type slot struct {
	campaign models.Campaign
	err      error
	done     bool
}

// window is a pre-sized run of consecutive indices read in parallel.
// Workers write only to their own slot, so no lock is needed; compact walks
// the slots in index order and drops the failed ones.
type window struct {
	start uint64
	slots []slot
}

func newWindow(start, size uint64) *window {
	return &window{start: start, slots: make([]slot, size)}
}

// compact appends the successful slots to result in ascending index order
func (w *window) compact(s *Sequence, result *Result) {
	for i, sl := range w.slots {
		index := w.start + uint64(i)
		if !sl.done {
			continue
		}
		if sl.err != nil {
			s.skip(result, index, sl.err)
			continue
		}
		result.Campaigns = append(result.Campaigns, sl.campaign)
	}
}

// fetchConcurrent reads up to Workers indices at a time. Output has exactly
// the same order and length as fetchSequential would produce.
func (s *Sequence) fetchConcurrent(ctx context.Context, count uint64) Result {
	result := Result{Campaigns: make([]models.Campaign, 0, preallocate(count))}
	size := uint64(s.config.WindowSize)

	slog.Debug("Fetching campaigns concurrently",
		"count", count,
		"workers", s.config.Workers,
		"window_size", size,
	)

	for start := uint64(0); start < count; start += size {
		if ctx.Err() != nil {
			return result
		}

		n := size
		if remaining := count - start; remaining < n {
			n = remaining
		}
		w := newWindow(start, n)

		var g errgroup.Group
		g.SetLimit(s.config.Workers)
		for i := range w.slots {
			i := i
			index := start + uint64(i)
			g.Go(func() error {
				if ctx.Err() != nil {
					return nil
				}
				campaign, err := s.readIndex(ctx, index)
				w.slots[i] = slot{campaign: campaign, err: err, done: true}
				return nil
			})
		}
		// Workers never return an error; failures live in their slot
		_ = g.Wait()

		if ctx.Err() != nil {
			return result
		}
		w.compact(s, &result)
	}

	return result
}
