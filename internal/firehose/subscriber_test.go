package firehose

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/feed"
	"github.com/pscheid92/feedpulse/internal/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticConfig struct {
	settings *domain.Settings
}

func (c staticConfig) Current() *domain.Settings { return c.settings }

func twoFeedSettings() *domain.Settings {
	return &domain.Settings{Feeds: []domain.FeedConfig{
		{Shortname: "tech-vibes", Keywords: []string{"osdev"}},
		{Shortname: "lab-notes", Keywords: []string{"homelab"}},
	}}
}

func newTestSubscriber(store *feed.MemoryStore) *Subscriber {
	return newTestSubscriberAt("wss://firehose.example", store)
}

func newTestSubscriberAt(url string, store *feed.MemoryStore) *Subscriber {
	configs := staticConfig{settings: twoFeedSettings()}
	clock := clockwork.NewFakeClock()
	ingester := feed.NewIngester(configs, telemetry.NoopSink{}, clock, "en")
	return NewSubscriber(url, "firehose.example", ingester, store, store, configs, clock)
}

func TestHandleBatch_InsertsMatches(t *testing.T) {
	store := feed.NewMemoryStore()
	sub := newTestSubscriber(store)

	sub.handleBatch(context.Background(), []domain.PostEvent{
		{Kind: domain.EventCreate, Seq: 10, URI: "at://a/1", CID: "c1", Text: "osdev and homelab news"},
	})

	_, tech := store.Get("tech-vibes", "at://a/1")
	_, lab := store.Get("lab-notes", "at://a/1")
	assert.True(t, tech, "matching post lands in every matching feed")
	assert.True(t, lab)
}

func TestHandleBatch_DeletesFanOutToAllFeeds(t *testing.T) {
	store := feed.NewMemoryStore()
	require.NoError(t, store.UpsertIgnoringConflict(context.Background(), []domain.ScoredPost{
		{Feed: "tech-vibes", URI: "at://a/1"},
		{Feed: "lab-notes", URI: "at://a/1"},
	}))
	sub := newTestSubscriber(store)

	sub.handleBatch(context.Background(), []domain.PostEvent{
		{Kind: domain.EventDelete, Seq: 11, URI: "at://a/1"},
	})

	assert.Zero(t, store.Len())
}

func TestHandleBatch_CursorAdvancesMonotonically(t *testing.T) {
	sub := newTestSubscriber(feed.NewMemoryStore())

	sub.handleBatch(context.Background(), []domain.PostEvent{{Kind: domain.EventDelete, Seq: 50, URI: "at://a/1"}})
	sub.handleBatch(context.Background(), []domain.PostEvent{{Kind: domain.EventDelete, Seq: 40, URI: "at://a/2"}})

	assert.Equal(t, int64(50), sub.cursor, "a replayed lower sequence never rewinds the cursor")
}

func TestHandleBatch_CursorPersistedAfterThreshold(t *testing.T) {
	store := feed.NewMemoryStore()
	sub := newTestSubscriber(store)

	sub.handleBatch(context.Background(), []domain.PostEvent{{Kind: domain.EventDelete, Seq: 150, URI: "at://a/1"}})
	_, saved, err := store.GetCursor(context.Background(), "firehose.example")
	require.NoError(t, err)
	assert.False(t, saved, "below the save threshold the cursor stays in memory")

	sub.handleBatch(context.Background(), []domain.PostEvent{{Kind: domain.EventDelete, Seq: 250, URI: "at://a/2"}})
	cursor, saved, err := store.GetCursor(context.Background(), "firehose.example")
	require.NoError(t, err)
	require.True(t, saved)
	assert.Equal(t, int64(250), cursor)
	assert.Zero(t, sub.unsaved)
}

func TestConsume_NoGoroutineBuildupAcrossReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close() // drop the connection right after the handshake
	}))
	defer srv.Close()

	sub := newTestSubscriberAt("ws"+strings.TrimPrefix(srv.URL, "http"), feed.NewMemoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	for i := 0; i < 50; i++ {
		require.Error(t, sub.consume(ctx))
	}

	deadline := time.Now().Add(2 * time.Second)
	for runtime.NumGoroutine() > before+2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before+2,
		"per-connection watchers must exit when their connection is gone")
}

func TestHandleBatch_EmptyBatch(t *testing.T) {
	sub := newTestSubscriber(feed.NewMemoryStore())

	sub.handleBatch(context.Background(), nil)

	assert.Zero(t, sub.cursor)
}
