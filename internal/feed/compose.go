package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

// PageSize is the fixed number of items per feed page.
const PageSize = 25

// Composer assembles feed pages from the score store. The candidate feed is
// recomputed in full on every call; the cursor is just an offset into it, so
// duplicate work across pages is traded for having no server-side state.
type Composer struct {
	store   domain.ScoreStore
	configs domain.ConfigSource
	clock   clockwork.Clock
}

func NewComposer(store domain.ScoreStore, configs domain.ConfigSource, clock clockwork.Clock) *Composer {
	return &Composer{store: store, configs: configs, clock: clock}
}

// Feeds lists the shortnames currently published.
func (c *Composer) Feeds() []string {
	settings := c.configs.Current()
	names := make([]string, 0, len(settings.Feeds))
	for _, cfg := range settings.Feeds {
		names = append(names, cfg.Shortname)
	}
	return names
}

// Compose builds the page at cursor for the named feed. A malformed cursor is
// logged and treated as the first page, never surfaced to the caller. The
// returned cursor is the next page's starting offset.
func (c *Composer) Compose(ctx context.Context, feedName, cursor string) ([]string, string, error) {
	cfg := c.configs.Current().Feed(feedName)
	if cfg == nil {
		return nil, "", fmt.Errorf("composing feed %q: %w", feedName, domain.ErrUnknownFeed)
	}

	start := c.clock.Now()
	defer func() {
		metrics.FeedComposeDuration.Observe(c.clock.Since(start).Seconds())
	}()

	requested := parseCursor(ctx, cursor)

	var (
		candidates []string
		err        error
	)
	if cfg.RequireLeadingWord {
		candidates, err = c.bucketedCandidates(ctx, cfg)
	} else {
		candidates, err = c.rankedCandidates(ctx, cfg, requested)
	}
	if err != nil {
		return nil, "", err
	}

	offset := requested
	if offset > len(candidates) {
		offset = len(candidates)
	}
	end := offset + PageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	page := candidates[offset:end]

	// The next cursor advances from the requested offset, never from the
	// clamp, so a stale cursor cannot rewind and replay earlier pages.
	next := strconv.Itoa(requested + len(page))
	slog.DebugContext(ctx, "Composed feed page", "feed", feedName, "items", len(page), "cursor", next)
	return page, next, nil
}

// bucketedCandidates draws one item per occurrence of each configured word,
// round-robin in sequence order, consuming each bucket's ranked candidates
// from the front. A drained bucket contributes nothing for its slot.
func (c *Composer) bucketedCandidates(ctx context.Context, cfg *domain.FeedConfig) ([]string, error) {
	quotas := make(map[string]int, len(cfg.Words))
	for _, word := range cfg.Words {
		quotas[word]++
	}

	buckets := make(map[string][]domain.ScoredPost, len(quotas))
	for word, quota := range quotas {
		rows, err := c.store.SelectTopByWord(ctx, cfg.Shortname, word, quota)
		if err != nil {
			return nil, fmt.Errorf("selecting bucket %q for feed %q: %w", word, cfg.Shortname, err)
		}
		buckets[word] = rows
	}

	candidates := make([]string, 0, len(cfg.Words)+len(cfg.PinnedPosts))
	for _, word := range cfg.Words {
		rows := buckets[word]
		if len(rows) == 0 {
			slog.WarnContext(ctx, "No posts left for word", "feed", cfg.Shortname, "word", word)
			metrics.FeedEmptyBuckets.WithLabelValues(cfg.Shortname, word).Inc()
			continue
		}
		candidates = append(candidates, rows[0].URI)
		buckets[word] = rows[1:]
	}

	return append(candidates, cfg.PinnedPosts...), nil
}

// rankedCandidates serves plain feeds: a straight score-ordered cut deep
// enough to cover the requested page, with pinned posts appended once the
// ranked portion is exhausted.
func (c *Composer) rankedCandidates(ctx context.Context, cfg *domain.FeedConfig, offset int) ([]string, error) {
	limit := offset + PageSize
	rows, err := c.store.SelectTop(ctx, cfg.Shortname, limit)
	if err != nil {
		return nil, fmt.Errorf("selecting top posts for feed %q: %w", cfg.Shortname, err)
	}

	candidates := make([]string, 0, len(rows)+len(cfg.PinnedPosts))
	for _, row := range rows {
		candidates = append(candidates, row.URI)
	}
	if len(rows) < limit {
		candidates = append(candidates, cfg.PinnedPosts...)
	}
	return candidates, nil
}

func parseCursor(ctx context.Context, cursor string) int {
	if cursor == "" {
		return 0
	}
	offset, err := strconv.Atoi(cursor)
	if err != nil || offset < 0 {
		slog.WarnContext(ctx, "Malformed cursor, starting from the top", "cursor", cursor, "error", err)
		return 0
	}
	return offset
}
