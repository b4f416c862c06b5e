// Package firehose consumes the upstream event stream over a websocket and
// drives the ingestion filter. Transport concerns (framing, reconnects,
// cursor resumption) live here; the engine only ever sees decoded events.
package firehose

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/feed"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

const (
	reconnectDelay  = 5 * time.Second
	cursorSaveEvery = 200 // events between cursor persists
)

// Subscriber reads event batches from the stream, classifies them, and
// applies the resulting inserts and deletes to the score store.
type Subscriber struct {
	url      string
	service  string
	ingester *feed.Ingester
	store    domain.ScoreStore
	subState domain.SubStateStore
	configs  domain.ConfigSource
	clock    clockwork.Clock

	dialer  *websocket.Dialer
	cursor  int64
	unsaved int64
}

func NewSubscriber(url, service string, ingester *feed.Ingester, store domain.ScoreStore, subState domain.SubStateStore, configs domain.ConfigSource, clock clockwork.Clock) *Subscriber {
	return &Subscriber{
		url:      url,
		service:  service,
		ingester: ingester,
		store:    store,
		subState: subState,
		configs:  configs,
		clock:    clock,
		dialer:   websocket.DefaultDialer,
	}
}

// Run consumes the stream until ctx is cancelled, reconnecting after a fixed
// delay on any connection failure. Resumes from the persisted cursor.
func (s *Subscriber) Run(ctx context.Context) {
	cursor, ok, err := s.subState.GetCursor(ctx, s.service)
	if err != nil {
		slog.ErrorContext(ctx, "Loading firehose cursor failed, starting from live", "error", err)
	} else if ok {
		s.cursor = cursor
	}

	for {
		if err := s.consume(ctx); err != nil && ctx.Err() == nil {
			slog.WarnContext(ctx, "Firehose connection lost, reconnecting", "error", err, "delay", reconnectDelay)
			metrics.FirehoseReconnects.Inc()
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(reconnectDelay):
		}
	}
}

func (s *Subscriber) consume(ctx context.Context) error {
	url := s.url
	if s.cursor > 0 {
		url = fmt.Sprintf("%s?cursor=%d", s.url, s.cursor)
	}

	conn, _, err := s.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dialing firehose: %w", err)
	}
	defer func() { _ = conn.Close() }()
	slog.InfoContext(ctx, "Firehose connected", "url", s.url, "cursor", s.cursor)

	// Unblock ReadMessage when the context ends. done bounds the watcher to
	// this connection so reconnect churn cannot accumulate goroutines.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("reading firehose frame: %w", err)
		}

		var batch []domain.PostEvent
		if err := json.Unmarshal(frame, &batch); err != nil {
			// Malformed frames are dropped, not fatal: the stream carries
			// event kinds this service never asked for.
			slog.DebugContext(ctx, "Dropping malformed firehose frame", "error", err)
			metrics.FirehoseMalformedFrames.Inc()
			continue
		}

		s.handleBatch(ctx, batch)
	}
}

func (s *Subscriber) handleBatch(ctx context.Context, batch []domain.PostEvent) {
	if len(batch) == 0 {
		return
	}

	classified := s.ingester.Classify(ctx, batch)
	s.apply(ctx, classified)

	last := batch[len(batch)-1].Seq
	if last > s.cursor {
		s.unsaved += last - s.cursor
		s.cursor = last
	}
	if s.unsaved >= cursorSaveEvery {
		if err := s.subState.SetCursor(ctx, s.service, s.cursor); err != nil {
			slog.WarnContext(ctx, "Persisting firehose cursor failed", "cursor", s.cursor, "error", err)
		} else {
			s.unsaved = 0
		}
	}
}

// apply writes the classification result to the store. Deletes carry no feed
// information upstream, so they fan out to every configured feed; rows that
// do not exist are no-ops.
func (s *Subscriber) apply(ctx context.Context, classified feed.Classified) {
	if len(classified.Deletes) > 0 {
		for _, cfg := range s.configs.Current().Feeds {
			if err := s.store.DeleteByURIs(ctx, cfg.Shortname, classified.Deletes); err != nil {
				slog.ErrorContext(ctx, "Applying deletes failed", "feed", cfg.Shortname, "error", err)
			}
		}
		metrics.PostsDeleted.Add(float64(len(classified.Deletes)))
	}

	if len(classified.Inserts) > 0 {
		if err := s.store.UpsertIgnoringConflict(ctx, classified.Inserts); err != nil {
			slog.ErrorContext(ctx, "Applying inserts failed", "count", len(classified.Inserts), "error", err)
		}
	}
}
