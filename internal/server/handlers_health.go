package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wmachuca/localstack-studio/internal/version"
)

func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": uptime,
	})
}

// handleReadiness verifies that the backing endpoint answers for both
// services the console manages.
func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"sqs", s.checkQueues},
		{"dynamodb", s.checkTables},
	}

	for _, check := range checks {
		if err := check.fn(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":       "unhealthy",
				"failed_check": check.name,
				"error":        err.Error(),
			})
		}
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) checkQueues(ctx context.Context) error {
	_, err := s.queues.ListQueues(ctx)
	return err
}

func (s *Server) checkTables(ctx context.Context) error {
	_, err := s.tables.ListTables(ctx)
	return err
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
