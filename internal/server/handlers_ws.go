package server

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/wmachuca/localstack-studio/internal/metrics"
)

// handleMessageStream upgrades the request to a WebSocket and attaches it to
// the queue's broadcast channel. The poll loop for the queue starts with the
// first subscriber, so merely opening this stream makes messages flow.
func (s *Server) handleMessageStream(c echo.Context) error {
	queue := c.Param("queue")
	ip := c.RealIP()

	allowed, reason := s.limits.Acquire(ip)
	if !allowed {
		slog.Warn("Rejecting stream connection", "queue", queue, "ip", ip, "reason", reason)
		metrics.WSConnectionsRejected.WithLabelValues(string(reason)).Inc()
		return echo.NewHTTPError(http.StatusTooManyRequests, "connection limit reached")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.limits.Release(ip)
		return nil
	}

	connectionID := uuid.NewString()
	if err := s.hub.Register(queue, conn); err != nil {
		slog.Warn("Stream registration rejected", "queue", queue, "connection_id", connectionID, "error", err)
		metrics.WSConnectionsRejected.WithLabelValues("queue_limit").Inc()
		s.limits.Release(ip)
		return nil
	}

	slog.Info("Stream client connected", "queue", queue, "connection_id", connectionID, "ip", ip)
	go s.readPump(queue, conn, connectionID, ip)
	return nil
}

// readPump drains the client side of the connection. Subscribers never send
// application data; the read loop exists to process control frames and to
// notice the disconnect.
func (s *Server) readPump(queue string, conn *websocket.Conn, connectionID, ip string) {
	defer func() {
		s.hub.Unregister(queue, conn)
		s.limits.Release(ip)
		slog.Info("Stream client disconnected", "queue", queue, "connection_id", connectionID)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
