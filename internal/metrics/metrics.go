package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics - Track snapshot fetch sequences
var (
	FetchSequences = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afunding_fetch_sequences_total",
			Help: "Total number of fetch sequences by outcome",
		},
		[]string{"outcome"},
	)

	RecordReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afunding_record_reads_total",
			Help: "Total number of per-index campaign reads by result",
		},
		[]string{"result"},
	)

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "afunding_fetch_duration_seconds",
		Help:    "Time taken by a full count-then-iterate fetch sequence",
		Buckets: prometheus.DefBuckets,
	})

	SnapshotSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "afunding_snapshot_size",
		Help: "Number of campaigns in the most recently published snapshot",
	})
)

// Write metrics - Track campaign creation
var (
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afunding_submissions_total",
			Help: "Total number of createCampaign submissions by result",
		},
		[]string{"result"},
	)
)

// Transport metrics
var (
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "afunding_rpc_calls_total",
			Help: "Total number of RPC calls issued by contract method",
		},
		[]string{"method"},
	)
)

// Session metrics
var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "afunding_active_sessions",
		Help: "Number of browser sessions currently held in memory",
	})

	FetchWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "afunding_fetch_workers",
		Help: "Configured number of concurrent per-index readers (1 = sequential)",
	})
)

// Outcome and result label values
const (
	OutcomePublished   = "published"
	OutcomeCountFailed = "count_failed"
	OutcomeCancelled   = "cancelled"

	ResultOK     = "ok"
	ResultFailed = "failed"
)
