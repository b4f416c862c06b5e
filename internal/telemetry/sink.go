// Package telemetry posts counter increments to an external metrics backend.
// Delivery is fire-and-forget: the ingestion and scoring paths must never
// block on, or fail because of, a telemetry call.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

const (
	defaultEndpoint = "https://metric-api.newrelic.com/metric/v1"
	postTimeout     = 10 * time.Second
)

// NewRelicSink delivers count metrics to the New Relic metric API.
type NewRelicSink struct {
	endpoint string
	apiKey   string
	client   *http.Client
	clock    clockwork.Clock
}

func NewNewRelicSink(apiKey string, clock clockwork.Clock) *NewRelicSink {
	return &NewRelicSink{
		endpoint: defaultEndpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: postTimeout},
		clock:    clock,
	}
}

type metricPayload struct {
	Metrics []metricEntry `json:"metrics"`
}

type metricEntry struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Value      float64           `json:"value"`
	Timestamp  int64             `json:"timestamp"`
	IntervalMs int64             `json:"interval.ms"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// IncrementCounter posts a count metric in a background goroutine. Failures
// are logged and counted, never returned.
func (s *NewRelicSink) IncrementCounter(ctx context.Context, name string, value float64, intervalMs int64, attrs map[string]string) {
	payload := metricPayload{
		Metrics: []metricEntry{{
			Name:       name,
			Type:       "count",
			Value:      value,
			Timestamp:  s.clock.Now().UnixMilli(),
			IntervalMs: intervalMs,
			Attributes: attrs,
		}},
	}

	go func() {
		// Detached from the caller's context: a finished ingestion batch must
		// not cancel an in-flight metric post.
		postCtx, cancel := context.WithTimeout(context.Background(), postTimeout)
		defer cancel()

		if err := s.post(postCtx, payload); err != nil {
			metrics.TelemetryPostFailures.Inc()
			slog.Warn("Telemetry post failed", "metric", name, "error", err)
		}
	}()
}

func (s *NewRelicSink) post(ctx context.Context, payload metricPayload) error {
	body, err := json.Marshal([]metricPayload{payload})
	if err != nil {
		return fmt.Errorf("marshaling metric payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building metric request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting metric: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("metric API returned status %d", resp.StatusCode)
	}
	return nil
}

// NoopSink discards all metrics. Used when no API key is configured.
type NoopSink struct{}

func (NoopSink) IncrementCounter(context.Context, string, float64, int64, map[string]string) {}
