package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

func TestHandleLiveness(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(nil, nil, nil)
	require.NoError(t, srv.handleLiveness(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"status":"ok"`)
	assert.Contains(t, body, `"uptime"`)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	queues := &fakeQueueStore{
		listQueues: func(context.Context) ([]domain.QueueSummary, error) { return nil, nil },
	}
	tables := &fakeTableStore{
		listTables: func(context.Context) ([]domain.TableSummary, error) { return nil, nil },
	}
	srv := newTestServer(queues, tables, nil)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_SQSDown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	queues := &fakeQueueStore{
		listQueues: func(context.Context) ([]domain.QueueSummary, error) {
			return nil, errors.New("connection refused")
		},
	}
	srv := newTestServer(queues, &fakeTableStore{}, nil)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"failed_check":"sqs"`)
	assert.Contains(t, rec.Body.String(), `"error":"connection refused"`)
}

func TestHandleReadiness_DynamoDown(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	queues := &fakeQueueStore{
		listQueues: func(context.Context) ([]domain.QueueSummary, error) { return nil, nil },
	}
	tables := &fakeTableStore{
		listTables: func(context.Context) ([]domain.TableSummary, error) {
			return nil, errors.New("endpoint unreachable")
		},
	}
	srv := newTestServer(queues, tables, nil)

	require.NoError(t, srv.handleReadiness(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"failed_check":"dynamodb"`)
}

func TestHandleVersion(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	srv := newTestServer(nil, nil, nil)
	require.NoError(t, srv.handleVersion(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"version"`)
	assert.Contains(t, body, `"commit"`)
}
