package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

const (
	// ReapPeriod is how often the reaper wakes up.
	ReapPeriod = 2 * time.Hour
	// RetentionHorizon is the maximum age of any record, regardless of score.
	RetentionHorizon = 7 * 24 * time.Hour
)

// Reaper purges records older than the retention horizon. Records beyond the
// refresher's last tier are never rescored, so this is the only path that
// eventually removes them.
type Reaper struct {
	store   domain.ScoreStore
	configs domain.ConfigSource
	clock   clockwork.Clock
}

func NewReaper(store domain.ScoreStore, configs domain.ConfigSource, clock clockwork.Clock) *Reaper {
	return &Reaper{store: store, configs: configs, clock: clock}
}

// Run executes one immediate pass and then loops on the wake-up timer until
// ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	r.Pass(ctx)

	ticker := r.clock.NewTicker(ReapPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Pass(ctx)
		}
	}
}

// Pass deletes every record past the retention horizon across all feeds.
func (r *Reaper) Pass(ctx context.Context) {
	slog.DebugContext(ctx, "Deleting stale posts")
	cutoff := r.clock.Now().Add(-RetentionHorizon).UnixMilli()

	var deleted int64
	for _, cfg := range r.configs.Current().Feeds {
		n, err := r.store.DeleteOlderThan(ctx, cfg.Shortname, cutoff)
		if err != nil {
			slog.ErrorContext(ctx, "Reaping stale posts failed", "feed", cfg.Shortname, "error", err)
			continue
		}
		deleted += n
	}

	if deleted > 0 {
		metrics.ReaperRecordsDeleted.Add(float64(deleted))
		slog.InfoContext(ctx, "Reaped stale posts", "count", deleted)
	}
}
