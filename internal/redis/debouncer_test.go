package redis

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDebouncer_FirstCallerWinsWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	debouncer := NewMemoryDebouncer(clock)
	ctx := context.Background()

	ok, err := debouncer.TryAcquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = debouncer.TryAcquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.False(t, ok, "second caller inside the window is suppressed")
}

func TestMemoryDebouncer_WindowExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	debouncer := NewMemoryDebouncer(clock)
	ctx := context.Background()

	ok, err := debouncer.TryAcquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(31 * time.Second)

	ok, err = debouncer.TryAcquire(ctx, "k", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryDebouncer_KeysAreIndependent(t *testing.T) {
	debouncer := NewMemoryDebouncer(clockwork.NewFakeClock())
	ctx := context.Background()

	ok, err := debouncer.TryAcquire(ctx, "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = debouncer.TryAcquire(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
