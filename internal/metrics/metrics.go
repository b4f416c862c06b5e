package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion Metrics
var (
	// PostsSeen counts every post creation observed on the stream.
	PostsSeen = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_posts_seen_total",
			Help: "Total post creations observed on the event stream",
		},
	)

	// PostsMatched counts qualifying matches by feed and keyword.
	PostsMatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_posts_matched_total",
			Help: "Total posts matched into a feed by feed and keyword",
		},
		[]string{"feed", "keyword"},
	)

	// PostsDeleted counts delete events applied to the store.
	PostsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_posts_deleted_total",
			Help: "Total post delete events applied to the score store",
		},
	)

	// FirehoseReconnects counts stream reconnection attempts.
	FirehoseReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firehose_reconnects_total",
			Help: "Total firehose reconnection attempts after a dropped connection",
		},
	)

	// FirehoseMalformedFrames counts frames that failed to decode.
	FirehoseMalformedFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "firehose_malformed_frames_total",
			Help: "Total firehose frames dropped because they failed to decode",
		},
	)
)

// Refresh Scheduler Metrics
var (
	// RefreshCycles counts completed refresh passes by trigger source.
	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_cycles_total",
			Help: "Total refresh scheduler passes by trigger (timer/startup/request)",
		},
		[]string{"trigger"},
	)

	// RefreshRecordsProcessed counts due records handled by outcome.
	RefreshRecordsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refresh_records_processed_total",
			Help: "Due records processed by outcome (updated/gone/unsafe/fetch_error)",
		},
		[]string{"outcome"},
	)

	// RefreshCycleDuration tracks how long a full refresh pass takes.
	RefreshCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refresh_cycle_duration_seconds",
			Help:    "Refresh scheduler pass duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// ReaperRecordsDeleted counts records purged past the retention horizon.
	ReaperRecordsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_records_deleted_total",
			Help: "Total records deleted for exceeding the retention horizon",
		},
	)
)

// Feed Serving Metrics
var (
	// FeedRequests counts feed skeleton requests by feed and result.
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total getFeedSkeleton requests by feed and result",
		},
		[]string{"feed", "result"},
	)

	// FeedComposeDuration tracks feed composition latency.
	FeedComposeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "feed_compose_duration_seconds",
			Help:    "Feed composition duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// FeedEmptyBuckets counts round-robin slots skipped for lack of candidates.
	FeedEmptyBuckets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_empty_bucket_slots_total",
			Help: "Round-robin slots skipped because the bucket had no candidates left",
		},
		[]string{"feed", "word"},
	)
)

// Settings Metrics
var (
	// SettingsReloads counts settings file reloads by result.
	SettingsReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settings_reloads_total",
			Help: "Settings file reload attempts by result (changed/unchanged/error)",
		},
		[]string{"result"},
	)
)

// Telemetry Sink Metrics
var (
	// TelemetryPostFailures counts swallowed telemetry delivery failures.
	TelemetryPostFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "telemetry_post_failures_total",
			Help: "Total external telemetry posts that failed and were dropped",
		},
	)
)
