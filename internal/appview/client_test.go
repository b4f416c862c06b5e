package appview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURI = "at://did:plc:abc/app.bsky.feed.post/123"

func TestGetPostStats_ParsesEngagementAndLabels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getPosts", r.URL.Path)
		assert.Equal(t, testURI, r.URL.Query().Get("uris"))
		_, _ = w.Write([]byte(`{"posts": [{
			"uri": "` + testURI + `",
			"likeCount": 42,
			"repostCount": 7,
			"labels": [{"val": "porn"}, {"val": "spoiler"}]
		}]}`))
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL).GetPostStats(context.Background(), testURI)

	require.NoError(t, err)
	assert.Equal(t, 42, stats.Likes)
	assert.Equal(t, 7, stats.Reposts)
	assert.Equal(t, []string{"porn", "spoiler"}, stats.Labels)
}

func TestGetPostStats_GoneStatusCodes(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusGone} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := NewClient(srv.URL).GetPostStats(context.Background(), testURI)
		srv.Close()

		assert.ErrorIs(t, err, domain.ErrContentGone, "status %d", status)
	}
}

func TestGetPostStats_MissingPostIsGone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"posts": []}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetPostStats(context.Background(), testURI)

	assert.ErrorIs(t, err, domain.ErrContentGone)
}

func TestGetPostStats_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetPostStats(context.Background(), testURI)

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrContentGone)
}

func TestGetPostStats_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"posts": [`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetPostStats(context.Background(), testURI)

	assert.Error(t, err)
}
