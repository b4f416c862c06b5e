package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
	"github.com/pscheid92/feedpulse/internal/platform/correlation"
)

// RefreshPeriod is the scheduler's wake-up interval. Feed reads may trigger
// extra passes in between, debounced so bursts collapse into one.
const (
	RefreshPeriod      = 15 * time.Minute
	triggerDebounceTTL = 30 * time.Second
	triggerKey         = "feedpulse:refresh-trigger"
)

// RefreshTiers staggers rescoring cost by record age: young records refresh
// every few minutes while day-old ones wait hours. Tiers combine with OR — a
// record is due when any row's age bound and staleness bound both hold.
// Records older than the last age bound are left to the reaper.
var RefreshTiers = []domain.RefreshTier{
	{MaxAge: 5 * time.Minute, MinSinceScored: 5 * time.Minute},
	{MaxAge: 10 * time.Minute, MinSinceScored: 10 * time.Minute},
	{MaxAge: 15 * time.Minute, MinSinceScored: 15 * time.Minute},
	{MaxAge: 2 * time.Hour, MinSinceScored: 30 * time.Minute},
	{MaxAge: 6 * time.Hour, MinSinceScored: time.Hour},
	{MaxAge: 12 * time.Hour, MinSinceScored: 2 * time.Hour},
	{MaxAge: 24 * time.Hour, MinSinceScored: 4 * time.Hour},
	{MaxAge: 48 * time.Hour, MinSinceScored: 8 * time.Hour},
	{MaxAge: 10000 * time.Hour, MinSinceScored: 24 * time.Hour},
}

// bannedLabels disqualify a post outright: any intersection between a post's
// live labels and this set deletes its record.
var bannedLabels = map[string]struct{}{
	"!hide":               {},
	"!warn":               {},
	"!no-unauthenticated": {},
	"porn":                {},
	"sexual":              {},
	"graphic-media":       {},
	"nudity":              {},
}

// Refresher recomputes decay scores for due records on the tiered schedule,
// evicting records whose content is gone or carries a banned label.
type Refresher struct {
	store     domain.ScoreStore
	content   domain.ContentClient
	configs   domain.ConfigSource
	debouncer domain.Debouncer
	clock     clockwork.Clock
	trigger   chan struct{}
}

func NewRefresher(store domain.ScoreStore, content domain.ContentClient, configs domain.ConfigSource, debouncer domain.Debouncer, clock clockwork.Clock) *Refresher {
	return &Refresher{
		store:     store,
		content:   content,
		configs:   configs,
		debouncer: debouncer,
		clock:     clock,
		trigger:   make(chan struct{}, 1),
	}
}

// Run executes one immediate pass and then loops on the wake-up timer and the
// request trigger until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	r.Pass(ctx, "startup")

	ticker := r.clock.NewTicker(RefreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Pass(ctx, "timer")
		case <-r.trigger:
			r.Pass(ctx, "request")
		}
	}
}

// TriggerAsync requests a best-effort pass without blocking the caller. The
// debouncer collapses request bursts; a pass already queued drops the trigger.
func (r *Refresher) TriggerAsync(ctx context.Context) {
	ok, err := r.debouncer.TryAcquire(ctx, triggerKey, triggerDebounceTTL)
	if err != nil {
		slog.WarnContext(ctx, "Refresh trigger debounce failed", "error", err)
		return
	}
	if !ok {
		return
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Pass refreshes every due record across all configured feeds. Each pass is
// exhaustive: failures skip individual records, never the cycle.
func (r *Refresher) Pass(ctx context.Context, trigger string) {
	runID := correlation.NewID()
	ctx = correlation.WithID(ctx, runID)
	started := r.clock.Now()
	updated := 0

	for _, cfg := range r.configs.Current().Feeds {
		updated += r.refreshFeed(ctx, cfg.Shortname)
	}

	metrics.RefreshCycles.WithLabelValues(trigger).Inc()
	metrics.RefreshCycleDuration.Observe(r.clock.Since(started).Seconds())

	when := r.clock.Now().Format("3:04 PM")
	if updated > 0 {
		slog.InfoContext(ctx, "Updated scores", "count", updated, "at", when, "run_id", runID)
	} else {
		slog.InfoContext(ctx, "No scores to update", "at", when, "run_id", runID)
	}
}

func (r *Refresher) refreshFeed(ctx context.Context, feedName string) int {
	nowMs := r.clock.Now().UnixMilli()
	due, err := r.store.SelectDue(ctx, feedName, nowMs, RefreshTiers)
	if err != nil {
		slog.ErrorContext(ctx, "Selecting due records failed", "feed", feedName, "error", err)
		return 0
	}

	updated := 0
	for _, record := range due {
		if r.refreshRecord(ctx, record) {
			updated++
		}
	}
	return updated
}

// refreshRecord recomputes one record's score from live engagement, deleting
// it when the content is gone or unsafe. Returns true when the row changed.
func (r *Refresher) refreshRecord(ctx context.Context, record domain.ScoredPost) bool {
	stats, err := r.content.GetPostStats(ctx, record.URI)
	if errors.Is(err, domain.ErrContentGone) {
		slog.InfoContext(ctx, "Deleting vanished post", "feed", record.Feed, "uri", record.URI)
		metrics.RefreshRecordsProcessed.WithLabelValues("gone").Inc()
		r.deleteRecord(ctx, record)
		return true
	}
	if err != nil {
		// Transient failure: keep the record and its stale score, the next
		// cycle retries.
		slog.WarnContext(ctx, "Fetching post stats failed, skipping", "feed", record.Feed, "uri", record.URI, "error", err)
		metrics.RefreshRecordsProcessed.WithLabelValues("fetch_error").Inc()
		return false
	}

	if label, banned := firstBannedLabel(stats.Labels); banned {
		slog.InfoContext(ctx, "Deleting post with banned label", "feed", record.Feed, "uri", record.URI, "label", label)
		metrics.RefreshRecordsProcessed.WithLabelValues("unsafe").Inc()
		r.deleteRecord(ctx, record)
		return true
	}

	nowMs := r.clock.Now().UnixMilli()
	ageHours := float64(nowMs-record.FirstIndexed) / float64(time.Hour.Milliseconds())
	score := Score(ageHours, stats.Likes, stats.Reposts, record.Mod)

	if err := r.store.UpdateScore(ctx, record.Feed, record.URI, score, nowMs); err != nil {
		slog.ErrorContext(ctx, "Updating score failed", "feed", record.Feed, "uri", record.URI, "error", err)
		return false
	}
	metrics.RefreshRecordsProcessed.WithLabelValues("updated").Inc()
	return true
}

func (r *Refresher) deleteRecord(ctx context.Context, record domain.ScoredPost) {
	if err := r.store.DeleteByURIs(ctx, record.Feed, []string{record.URI}); err != nil {
		slog.ErrorContext(ctx, "Deleting record failed", "feed", record.Feed, "uri", record.URI, "error", err)
	}
}

func firstBannedLabel(labels []string) (string, bool) {
	for _, label := range labels {
		if _, ok := bannedLabels[label]; ok {
			return label, true
		}
	}
	return "", false
}
