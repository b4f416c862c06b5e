package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// Debouncer gates best-effort triggers across instances with SET NX + TTL:
// the first caller in a window wins the key, everyone else is suppressed
// until it expires.
type Debouncer struct {
	rdb *goredis.Client
}

func NewDebouncer(rdb *goredis.Client) *Debouncer {
	return &Debouncer{rdb: rdb}
}

func (d *Debouncer) TryAcquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	set, err := d.rdb.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire debounce key: %w", err)
	}
	return set, nil
}

// MemoryDebouncer is the single-process fallback used when REDIS_URL is not
// configured.
type MemoryDebouncer struct {
	clock clockwork.Clock

	mu      sync.Mutex
	expires map[string]time.Time
}

func NewMemoryDebouncer(clock clockwork.Clock) *MemoryDebouncer {
	return &MemoryDebouncer{
		clock:   clock,
		expires: make(map[string]time.Time),
	}
}

func (d *MemoryDebouncer) TryAcquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock.Now()
	if until, held := d.expires[key]; held && now.Before(until) {
		return false, nil
	}
	d.expires[key] = now.Add(ttl)
	return true, nil
}
