// Package app owns the lifecycle of the background tasks: the settings
// poller, the firehose subscriber, the tiered refresh scheduler, and the
// retention reaper. Each task is an independent loop with an explicit start
// and stop instead of fire-and-forget timers.
package app

import (
	"context"
	"log/slog"
	"sync"
)

// Runner is a background task that blocks until its context is cancelled.
type Runner interface {
	Run(ctx context.Context)
}

type Service struct {
	runners []Runner

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(runners ...Runner) *Service {
	return &Service{runners: runners}
}

// Start launches every runner on its own goroutine. Calling Start twice is a
// no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, runner := range s.runners {
		s.wg.Add(1)
		go func(r Runner) {
			defer s.wg.Done()
			r.Run(ctx)
		}(runner)
	}
	slog.Info("Background tasks started", "count", len(s.runners))
}

// Stop cancels all runners and waits for them to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	slog.Info("Background tasks stopped")
}
