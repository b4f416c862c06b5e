package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/feedpulse/internal/domain"
	"github.com/pscheid92/feedpulse/internal/metrics"
)

// PollInterval bounds how often the settings file is re-read. Keyword edits
// land within this window without a restart.
const PollInterval = 10 * time.Second

// Provider loads the feed settings file and serves immutable snapshots,
// re-reading the file on a poll timer and swapping the snapshot atomically.
// A failed reload keeps the previous snapshot; only the initial load is fatal.
type Provider struct {
	path    string
	clock   clockwork.Clock
	current atomic.Pointer[domain.Settings]
	raw     []byte
	version int
}

// Load reads the settings file once and returns a provider primed with the
// first snapshot. An unreadable or invalid file is an error: the service must
// not start without keyword rules.
func Load(path string, clock clockwork.Clock) (*Provider, error) {
	p := &Provider{path: path, clock: clock}
	snapshot, raw, err := p.read()
	if err != nil {
		return nil, fmt.Errorf("loading settings from %s: %w", path, err)
	}
	p.raw = raw
	p.version = 1
	snapshot.Version = 1
	p.current.Store(snapshot)
	return p, nil
}

// Current returns the latest settings snapshot. The pointer is immutable;
// callers may hold it for the duration of one operation.
func (p *Provider) Current() *domain.Settings {
	return p.current.Load()
}

// Run polls the settings file until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.reload(ctx)
		}
	}
}

func (p *Provider) reload(ctx context.Context) {
	snapshot, raw, err := p.read()
	if err != nil {
		// Keep serving the previous snapshot; the next poll retries.
		slog.WarnContext(ctx, "Settings reload failed, keeping previous snapshot", "path", p.path, "error", err)
		metrics.SettingsReloads.WithLabelValues("error").Inc()
		return
	}
	if bytes.Equal(raw, p.raw) {
		metrics.SettingsReloads.WithLabelValues("unchanged").Inc()
		return
	}

	p.raw = raw
	p.version++
	snapshot.Version = p.version
	p.current.Store(snapshot)
	metrics.SettingsReloads.WithLabelValues("changed").Inc()
	slog.InfoContext(ctx, "Settings reloaded", "version", p.version, "feeds", len(snapshot.Feeds))
}

func (p *Provider) read() (*domain.Settings, []byte, error) {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings file: %w", err)
	}

	var snapshot domain.Settings
	snapshot.PublishMetrics = true
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, nil, fmt.Errorf("parsing settings file: %w", err)
	}
	if err := validate(&snapshot); err != nil {
		return nil, nil, err
	}

	normalize(&snapshot)
	return &snapshot, raw, nil
}

func validate(s *domain.Settings) error {
	if len(s.Feeds) == 0 {
		return fmt.Errorf("settings must define at least one feed")
	}
	seen := make(map[string]struct{}, len(s.Feeds))
	for _, cfg := range s.Feeds {
		if cfg.Shortname == "" {
			return fmt.Errorf("feed with empty shortname")
		}
		if _, dup := seen[cfg.Shortname]; dup {
			return fmt.Errorf("duplicate feed shortname %q", cfg.Shortname)
		}
		seen[cfg.Shortname] = struct{}{}
		if cfg.RequireLeadingWord && len(cfg.Words) == 0 {
			return fmt.Errorf("feed %q requires leading words but lists none", cfg.Shortname)
		}
	}
	return nil
}

// normalize lowercases all keyword material once at load so matching never
// has to (the matcher lowercases text, not keywords).
func normalize(s *domain.Settings) {
	lowerAll(s.SharedNegativeKeywords)
	for i := range s.Feeds {
		cfg := &s.Feeds[i]
		lowerAll(cfg.Keywords)
		lowerAll(cfg.PartialKeywords)
		lowerAll(cfg.NegativeKeywords)
		lowerAll(cfg.Words)
	}
}

func lowerAll(list []string) {
	for i, v := range list {
		list[i] = strings.ToLower(v)
	}
}
