package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
	"github.com/pscheid92/feedpulse/internal/platform/correlation"
)

type skeletonItem struct {
	Post string `json:"post"`
}

type skeletonResponse struct {
	Cursor string         `json:"cursor,omitempty"`
	Feed   []skeletonItem `json:"feed"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleGetFeedSkeleton serves one page of a feed. Every read also fires a
// best-effort refresh trigger so actively requested feeds stay fresher than
// the timer alone would keep them.
func (s *Server) handleGetFeedSkeleton(c echo.Context) error {
	ctx, _ := correlation.Ensure(c.Request().Context())

	feedURI := c.QueryParam("feed")
	shortname := recordName(feedURI)
	if shortname == "" {
		metrics.FeedRequests.WithLabelValues("", "bad_request").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "InvalidRequest", Message: "missing feed parameter"})
	}

	s.refresher.TriggerAsync(ctx)

	uris, next, err := s.composer.Compose(ctx, shortname, c.QueryParam("cursor"))
	if errors.Is(err, domain.ErrUnknownFeed) {
		// Caller-supplied names must not become label values: arbitrary
		// ?feed= probes would mint unbounded label children.
		metrics.FeedRequests.WithLabelValues("unknown", "unknown_feed").Inc()
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "UnsupportedAlgorithm", Message: "unknown feed: " + shortname})
	}
	if err != nil {
		slog.ErrorContext(ctx, "Feed composition failed", "feed", shortname, "error", err)
		metrics.FeedRequests.WithLabelValues(shortname, "error").Inc()
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "InternalError", Message: "feed composition failed"})
	}

	items := make([]skeletonItem, 0, len(uris))
	for _, uri := range uris {
		items = append(items, skeletonItem{Post: uri})
	}

	metrics.FeedRequests.WithLabelValues(shortname, "ok").Inc()
	slog.InfoContext(ctx, "Served feed page", "feed", shortname, "items", len(items), "cursor", next)
	return c.JSON(http.StatusOK, skeletonResponse{Cursor: next, Feed: items})
}

func (s *Server) handleDescribeFeedGenerator(c echo.Context) error {
	type feedRef struct {
		URI string `json:"uri"`
	}
	feeds := make([]feedRef, 0)
	for _, cfg := range s.composer.Feeds() {
		feeds = append(feeds, feedRef{URI: s.feedURI(cfg)})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"did":   s.config.ServiceDID,
		"feeds": feeds,
	})
}

func (s *Server) handleDIDDocument(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"@context": []string{"https://www.w3.org/ns/did/v1"},
		"id":       s.config.ServiceDID,
		"service": []map[string]any{{
			"id":              "#bsky_fg",
			"type":            "BskyFeedGenerator",
			"serviceEndpoint": "https://" + s.config.Hostname,
		}},
	})
}

func (s *Server) handleLiveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadiness(c echo.Context) error {
	if err := s.db.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) feedURI(shortname string) string {
	return "at://" + s.config.PublisherDID + "/app.bsky.feed.generator/" + shortname
}

// recordName extracts the record key from an at-uri; a bare shortname passes
// through unchanged.
func recordName(feedURI string) string {
	if feedURI == "" {
		return ""
	}
	if idx := strings.LastIndex(feedURI, "/"); idx >= 0 {
		return feedURI[idx+1:]
	}
	return feedURI
}
