package domain

import (
	"context"
	"time"
)

// --- Model types ---

// ScoredPost is one matched post tracked for a feed. A (Feed, URI) pair
// identifies at most one live record; FirstIndexed, CID, Mod and FirstWord
// are fixed at match time and never change afterwards.
type ScoredPost struct {
	Feed         string  `db:"feed"`
	URI          string  `db:"uri"`
	CID          string  `db:"cid"`
	FirstIndexed int64   `db:"first_indexed"` // epoch millis of first match
	LastScored   int64   `db:"last_scored"`   // epoch millis, 0 = never scored
	Score        float64 `db:"score"`
	Mod          int     `db:"mod"`        // moderation boost, applied additively to engagement
	FirstWord    string  `db:"first_word"` // bucket key, empty for feeds without a leading-word gate
}

// EventKind distinguishes the post operations carried by the firehose.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventDelete EventKind = "delete"
)

// PostEvent is one repository operation from the upstream stream. Deletes
// carry only URI and Seq; creates carry the full record fields.
type PostEvent struct {
	Kind  EventKind `json:"kind"`
	Seq   int64     `json:"seq"`
	URI   string    `json:"uri"`
	CID   string    `json:"cid,omitempty"`
	Text  string    `json:"text,omitempty"`
	Langs []string  `json:"langs,omitempty"`
	Reply bool      `json:"reply,omitempty"`
}

// PostStats is the live view of a post fetched from the content repository.
type PostStats struct {
	Likes   int
	Reposts int
	Labels  []string
}

// RefreshTier pairs a record-age bound with the minimum interval since the
// last scoring pass. A record is due when it satisfies any configured tier.
type RefreshTier struct {
	MaxAge         time.Duration
	MinSinceScored time.Duration
}

// SubState tracks the firehose cursor per upstream service so a restart
// resumes from the last processed sequence.
type SubState struct {
	Service string `db:"service"`
	Cursor  int64  `db:"cursor"`
}

// --- Interfaces ---

// ScoreStore is the persistence contract for scored posts. Every operation is
// idempotent under retry: duplicate inserts are no-ops keyed by (feed, uri)
// and deletes of absent rows succeed.
type ScoreStore interface {
	// UpsertIgnoringConflict inserts drafts, silently skipping rows whose
	// (feed, uri) already exists. First write wins.
	UpsertIgnoringConflict(ctx context.Context, posts []ScoredPost) error
	DeleteByURIs(ctx context.Context, feed string, uris []string) error

	// SelectDue returns records satisfying at least one refresh tier at nowMs.
	SelectDue(ctx context.Context, feed string, nowMs int64, tiers []RefreshTier) ([]ScoredPost, error)
	// SelectTopByWord returns a bucket's records ordered by score descending,
	// ties broken by first_indexed descending.
	SelectTopByWord(ctx context.Context, feed, word string, limit int) ([]ScoredPost, error)
	SelectTop(ctx context.Context, feed string, limit int) ([]ScoredPost, error)

	// UpdateScore sets score and last_scored on an existing record. Updating
	// a missing record is a no-op.
	UpdateScore(ctx context.Context, feed, uri string, score float64, lastScoredMs int64) error
	// DeleteOlderThan removes every record first-indexed before cutoffMs and
	// reports how many rows went away.
	DeleteOlderThan(ctx context.Context, feed string, cutoffMs int64) (int64, error)
}

// SubStateStore persists firehose cursors.
type SubStateStore interface {
	GetCursor(ctx context.Context, service string) (int64, bool, error)
	SetCursor(ctx context.Context, service string, cursor int64) error
}

// ContentClient fetches live engagement counts and safety labels for a post.
// Implementations return ErrContentGone when the post no longer exists.
type ContentClient interface {
	GetPostStats(ctx context.Context, uri string) (*PostStats, error)
}

// TelemetrySink posts counter increments to an external metrics backend.
// Implementations are fire-and-forget: failures are logged, never returned
// into the ingestion or scoring path.
type TelemetrySink interface {
	IncrementCounter(ctx context.Context, name string, value float64, intervalMs int64, attrs map[string]string)
}

// Debouncer gates best-effort triggers so concurrent feed reads do not
// stampede the refresh scheduler.
type Debouncer interface {
	// TryAcquire returns true when the caller won the key for the ttl window.
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
