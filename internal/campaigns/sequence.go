package campaigns

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"afunding/internal/ledger"
	"afunding/internal/metrics"
	"afunding/internal/models"
)

// Publisher receives the snapshot produced by a completed sequence
type Publisher interface {
	Set(snapshot []models.Campaign)
}

// SequenceConfig tunes a fetch sequence
type SequenceConfig struct {
	// Workers is the number of concurrent indexed reads. 0 or 1 reads
	// strictly one index at a time.
	Workers int

	// WindowSize bounds how many indices are in flight per reassembly
	// window when Workers > 1. Defaults to 16 * Workers.
	WindowSize int
}

// Result describes one fetch sequence
type Result struct {
	Count     uint64
	Campaigns []models.Campaign
	Skipped   []uint64
	Published bool
	Duration  time.Duration
}

// Sequence performs a snapshot fetch: read the count, read every index,
// decode, then publish the whole list once
type Sequence struct {
	counter  *CountReader
	contract Caller
	store    Publisher
	config   SequenceConfig
}

// NewSequence creates a Sequence reading from contract and publishing to store
func NewSequence(contract Caller, store Publisher, config SequenceConfig) *Sequence {
	if config.Workers > 1 && config.WindowSize <= 0 {
		config.WindowSize = 16 * config.Workers
	}
	return &Sequence{
		counter:  NewCountReader(contract),
		contract: contract,
		store:    store,
		config:   config,
	}
}

// Run executes one sequence.
//
// A count failure aborts before anything is published and is returned.
// A failed or undecodable index is logged and left out of the snapshot.
// If ctx is cancelled the sequence stops and nothing is published.
func (s *Sequence) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	slog.Info("Starting to fetch campaigns...")

	count, err := s.counter.Read(ctx)
	if err != nil {
		slog.Error("Error fetching campaign count", "error", err)
		metrics.FetchSequences.WithLabelValues(metrics.OutcomeCountFailed).Inc()
		return Result{}, fmt.Errorf("read campaign count: %w", err)
	}
	slog.Info("Campaign count", "count", count)

	var result Result
	if s.config.Workers > 1 {
		result = s.fetchConcurrent(ctx, count)
	} else {
		result = s.fetchSequential(ctx, count)
	}
	result.Count = count

	if err := ctx.Err(); err != nil {
		result.Duration = time.Since(start)
		slog.Warn("Fetch sequence cancelled, snapshot not published",
			"count", count,
			"fetched", len(result.Campaigns),
		)
		metrics.FetchSequences.WithLabelValues(metrics.OutcomeCancelled).Inc()
		return result, fmt.Errorf("fetch sequence cancelled: %w", err)
	}

	s.store.Set(result.Campaigns)
	result.Published = true
	result.Duration = time.Since(start)

	metrics.FetchSequences.WithLabelValues(metrics.OutcomePublished).Inc()
	metrics.FetchDuration.Observe(result.Duration.Seconds())
	metrics.SnapshotSize.Set(float64(len(result.Campaigns)))

	slog.Info("Fetched campaigns",
		"count", count,
		"published", len(result.Campaigns),
		"skipped", len(result.Skipped),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// fetchSequential issues index i+1 only after index i completed
func (s *Sequence) fetchSequential(ctx context.Context, count uint64) Result {
	result := Result{Campaigns: make([]models.Campaign, 0, preallocate(count))}

	for i := uint64(0); i < count; i++ {
		if ctx.Err() != nil {
			return result
		}

		slog.Debug("Fetching campaign at index", "index", i)
		campaign, err := s.readIndex(ctx, i)
		if err != nil {
			s.skip(&result, i, err)
			continue
		}
		result.Campaigns = append(result.Campaigns, campaign)
	}

	return result
}

// readIndex reads and decodes the campaign stored at index
func (s *Sequence) readIndex(ctx context.Context, index uint64) (models.Campaign, error) {
	out, err := s.contract.Call(ctx, ledger.MethodCampaigns, new(big.Int).SetUint64(index))
	if err != nil {
		return models.Campaign{}, err
	}

	campaign, err := Assemble(index, out)
	if err != nil {
		return models.Campaign{}, err
	}

	metrics.RecordReads.WithLabelValues(metrics.ResultOK).Inc()
	slog.Debug("Fetched campaign", "index", index, "title", campaign.Title)
	return campaign, nil
}

func (s *Sequence) skip(result *Result, index uint64, err error) {
	slog.Warn("Error fetching campaign at index", "index", index, "error", err)
	metrics.RecordReads.WithLabelValues(metrics.ResultFailed).Inc()
	result.Skipped = append(result.Skipped, index)
}

// preallocate caps the initial capacity so a bogus count cannot force a
// huge allocation
func preallocate(count uint64) int {
	const limit = 1024
	if count > limit {
		return limit
	}
	return int(count)
}
