package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wmachuca/localstack-studio/internal/broadcast"
	"github.com/wmachuca/localstack-studio/internal/config"
	"github.com/wmachuca/localstack-studio/internal/domain"
)

type Server struct {
	echo   *echo.Echo
	config *config.Config

	queues domain.QueueStore
	tables domain.TableStore
	hub    *broadcast.Hub

	limits   *ConnectionLimits
	upgrader websocket.Upgrader

	startTime time.Time
}

func NewServer(cfg *config.Config, queues domain.QueueStore, tables domain.TableStore, hub *broadcast.Hub) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		queues: queues,
		tables: tables,
		hub:    hub,
		limits: NewConnectionLimits(cfg.WSMaxConnections, cfg.WSMaxPerIP, cfg.WSConnectionsPerSec, cfg.WSConnectionBurst),
		upgrader: websocket.Upgrader{
			// The console is a local development tool behind no proxy;
			// cross-origin browser access is expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
