package feed

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

const (
	maxHashtags = 6

	matchedPostsMetric = "bluesky.feed.eligiblePosts"
	totalPostsMetric   = "bluesky.feed.totalPosts"
	totalFlushInterval = time.Minute
)

// Classified is the result of running one event batch through the filter.
// Deletes apply to every feed; inserts already carry their target feed.
type Classified struct {
	Inserts []domain.ScoredPost
	Deletes []string
}

// Ingester turns raw stream events into score-store operations. It reads the
// current settings snapshot per batch, so keyword changes picked up by the
// config source apply without restarts.
type Ingester struct {
	configs     domain.ConfigSource
	telemetry   domain.TelemetrySink
	clock       clockwork.Clock
	primaryLang string

	mu         sync.Mutex
	totalPosts int64
	lastFlush  time.Time
}

func NewIngester(configs domain.ConfigSource, telemetry domain.TelemetrySink, clock clockwork.Clock, primaryLang string) *Ingester {
	return &Ingester{
		configs:     configs,
		telemetry:   telemetry,
		clock:       clock,
		primaryLang: primaryLang,
		lastFlush:   clock.Now(),
	}
}

// Classify applies eligibility rules and keyword matching to a batch of
// events. Telemetry emission is fire-and-forget; it never fails or delays the
// returned classification.
func (ing *Ingester) Classify(ctx context.Context, events []domain.PostEvent) Classified {
	settings := ing.configs.Current()
	now := ing.clock.Now().UnixMilli()

	var out Classified
	seen := make(map[string]map[string]struct{}, len(settings.Feeds))

	for _, evt := range events {
		switch evt.Kind {
		case domain.EventDelete:
			out.Deletes = append(out.Deletes, evt.URI)
		case domain.EventCreate:
			ing.countPost(ctx, settings)
			if !ing.eligible(evt) {
				continue
			}
			for i := range settings.Feeds {
				cfg := &settings.Feeds[i]
				draft, ok := ing.classifyForFeed(ctx, evt, cfg, settings, now)
				if !ok {
					continue
				}
				if seen[cfg.Shortname] == nil {
					seen[cfg.Shortname] = make(map[string]struct{})
				}
				if _, dup := seen[cfg.Shortname][evt.URI]; dup {
					continue
				}
				seen[cfg.Shortname][evt.URI] = struct{}{}
				out.Inserts = append(out.Inserts, draft)
			}
		default:
			slog.DebugContext(ctx, "Ignoring event with unknown kind", "kind", evt.Kind, "uri", evt.URI)
		}
	}
	return out
}

// eligible applies the pre-matching gates shared by all feeds: original text
// posts only, in the primary language (an absent language list passes), with
// at most maxHashtags hash characters.
func (ing *Ingester) eligible(evt domain.PostEvent) bool {
	if evt.Reply {
		return false
	}
	if len(evt.Langs) > 0 && !containsString(evt.Langs, ing.primaryLang) {
		return false
	}
	return strings.Count(evt.Text, "#") <= maxHashtags
}

func (ing *Ingester) classifyForFeed(ctx context.Context, evt domain.PostEvent, cfg *domain.FeedConfig, settings *domain.Settings, nowMs int64) (domain.ScoredPost, bool) {
	negatives := make([]string, 0, len(cfg.NegativeKeywords)+len(settings.SharedNegativeKeywords))
	negatives = append(negatives, cfg.NegativeKeywords...)
	negatives = append(negatives, settings.SharedNegativeKeywords...)

	// Boost triggers also count as partial keywords, matching the published
	// settings semantics: a boosted word qualifies a post on its own.
	partials := cfg.PartialKeywords
	if len(cfg.BoostedKeywords) > 0 {
		partials = make([]string, 0, len(cfg.PartialKeywords)+len(cfg.BoostedKeywords))
		partials = append(partials, cfg.PartialKeywords...)
		for trigger := range cfg.BoostedKeywords {
			partials = append(partials, strings.ToLower(trigger))
		}
	}

	keyword, ok := Match(evt.Text, cfg.Keywords, partials, negatives)
	if !ok {
		return domain.ScoredPost{}, false
	}

	firstWord := ""
	if cfg.RequireLeadingWord {
		firstWord = FirstWord(evt.Text)
		if !containsString(cfg.Words, firstWord) {
			return domain.ScoredPost{}, false
		}
	}

	metrics.PostsMatched.WithLabelValues(cfg.Shortname, keyword).Inc()
	if settings.PublishMetrics {
		ing.telemetry.IncrementCounter(ctx, matchedPostsMetric, 1, 1, map[string]string{"keyword": keyword})
	}
	slog.DebugContext(ctx, "Post matched", "feed", cfg.Shortname, "keyword", keyword, "uri", evt.URI)

	return domain.ScoredPost{
		Feed:         cfg.Shortname,
		URI:          evt.URI,
		CID:          evt.CID,
		FirstIndexed: nowMs,
		LastScored:   0,
		Score:        0,
		Mod:          ModBoost(evt.Text, cfg.BoostedKeywords),
		FirstWord:    firstWord,
	}, true
}

// countPost tracks the raw post volume and flushes the aggregate counter to
// telemetry at most once per minute.
func (ing *Ingester) countPost(ctx context.Context, settings *domain.Settings) {
	metrics.PostsSeen.Inc()

	ing.mu.Lock()
	ing.totalPosts++
	flush := int64(0)
	if ing.clock.Since(ing.lastFlush) >= totalFlushInterval {
		flush = ing.totalPosts
		ing.totalPosts = 0
		ing.lastFlush = ing.clock.Now()
	}
	ing.mu.Unlock()

	if flush > 0 && settings.PublishMetrics {
		ing.telemetry.IncrementCounter(ctx, totalPostsMetric, float64(flush), totalFlushInterval.Milliseconds(), nil)
	}
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
