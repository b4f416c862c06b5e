package server

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pscheid92/feedpulse/internal/config"
	"github.com/pscheid92/feedpulse/internal/feed"
	"github.com/pscheid92/feedpulse/internal/platform/correlation"
)

// refreshTrigger requests a best-effort score refresh without blocking.
type refreshTrigger interface {
	TriggerAsync(ctx context.Context)
}

// pinger reports storage connectivity for the readiness probe.
type pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	echo      *echo.Echo
	config    *config.Config
	composer  *feed.Composer
	refresher refreshTrigger
	db        pinger
}

func NewServer(cfg *config.Config, composer *feed.Composer, refresher refreshTrigger, db pinger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			// Seed the correlation context so handler log lines carry the
			// request ID without each handler minting its own.
			req := c.Request()
			c.SetRequest(req.WithContext(correlation.WithID(req.Context(), id)))
		},
	}))

	srv := &Server{
		echo:      e,
		config:    cfg,
		composer:  composer,
		refresher: refresher,
		db:        db,
	}

	srv.registerRoutes()
	return srv
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
