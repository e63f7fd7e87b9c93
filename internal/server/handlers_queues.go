package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

// storeError maps backing store failures onto HTTP status codes.
func storeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrQueueNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "queue not found")
	case errors.Is(err, domain.ErrTableNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "table not found")
	case errors.Is(err, domain.ErrItemNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "item not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleListQueues(c echo.Context) error {
	queues, err := s.queues.ListQueues(c.Request().Context())
	if err != nil {
		slog.Error("Failed to list queues", "error", err)
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"queues": queues})
}

func (s *Server) handleGetQueue(c echo.Context) error {
	name := c.Param("name")

	attrs, err := s.queues.GetQueueAttributes(c.Request().Context(), name)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, attrs)
}

type createQueueRequest struct {
	QueueName  string            `json:"queueName"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleCreateQueue(c echo.Context) error {
	var req createQueueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.QueueName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "queueName is required")
	}

	url, err := s.queues.CreateQueue(c.Request().Context(), req.QueueName, req.Attributes)
	if err != nil {
		slog.Error("Failed to create queue", "queue", req.QueueName, "error", err)
		return storeError(err)
	}

	slog.Info("Queue created", "queue", req.QueueName)
	return c.JSON(http.StatusCreated, map[string]string{
		"queueName": req.QueueName,
		"queueUrl":  url,
	})
}

func (s *Server) handleDeleteQueue(c echo.Context) error {
	name := c.Param("name")

	if err := s.queues.DeleteQueue(c.Request().Context(), name); err != nil {
		return storeError(err)
	}

	slog.Info("Queue deleted", "queue", name)
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

type sendMessageRequest struct {
	MessageBody       string                             `json:"messageBody"`
	DelaySeconds      int32                              `json:"delaySeconds"`
	MessageAttributes map[string]domain.MessageAttribute `json:"messageAttributes"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	name := c.Param("name")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.MessageBody == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "messageBody is required")
	}

	result, err := s.queues.SendMessage(c.Request().Context(), name, req.MessageBody, req.MessageAttributes, req.DelaySeconds)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusCreated, result)
}

type deleteMessageRequest struct {
	ReceiptHandle string `json:"receiptHandle"`
}

func (s *Server) handleDeleteMessage(c echo.Context) error {
	name := c.Param("name")

	var req deleteMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.ReceiptHandle == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "receiptHandle is required")
	}

	if err := s.queues.DeleteMessage(c.Request().Context(), name, req.ReceiptHandle); err != nil {
		return storeError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handlePurgeQueue(c echo.Context) error {
	name := c.Param("name")

	if err := s.queues.PurgeQueue(c.Request().Context(), name); err != nil {
		return storeError(err)
	}

	slog.Info("Queue purged", "queue", name)
	return c.JSON(http.StatusOK, map[string]string{"status": "purged"})
}
