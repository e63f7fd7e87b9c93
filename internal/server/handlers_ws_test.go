package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wmachuca/localstack-studio/internal/broadcast"
	"github.com/wmachuca/localstack-studio/internal/config"
	"github.com/wmachuca/localstack-studio/internal/domain"
)

// wireStreamServer assembles the full delivery pipeline: store -> pollers ->
// hub -> HTTP server. Pollers start and stop with hub subscriptions.
func wireStreamServer(t *testing.T, cfg *config.Config, queues domain.QueueStore) (*httptest.Server, *broadcast.PollerSet) {
	t.Helper()

	clock := clockwork.NewRealClock()
	pollCfg := broadcast.PollConfig{
		Receive:      domain.ReceiveParams{WaitTimeSeconds: 1, VisibilityTimeout: 1, MaxNumberOfMessages: 10},
		Pace:         time.Millisecond,
		ErrorBackoff: time.Millisecond,
	}

	var hub *broadcast.Hub
	pollers := broadcast.NewPollerSet(queues, func(queue string, event domain.StreamEvent) {
		hub.Publish(queue, event)
	}, clock, pollCfg)
	hub = broadcast.NewHub(pollers.Start, pollers.Stop, clock, 50)
	t.Cleanup(func() {
		hub.Stop()
		pollers.StopAll()
	})

	srv := NewServer(cfg, queues, nil, hub)
	ts := httptest.NewServer(srv.echo)
	t.Cleanup(ts.Close)

	return ts, pollers
}

func dialStream(t *testing.T, ts *httptest.Server, queue string) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/messages/" + queue
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestMessageStream_EndToEnd(t *testing.T) {
	queues := &fakeQueueStore{
		receiveMessages: func(ctx context.Context, queue string, _ domain.ReceiveParams) ([]domain.Message, error) {
			return []domain.Message{{
				MessageID:  "m1",
				Body:       "hello",
				Attributes: map[string]string{domain.AttrSentTimestamp: "1700000000000"},
			}}, nil
		},
	}

	ts, pollers := wireStreamServer(t, testConfig(), queues)
	conn := dialStream(t, ts, "orders")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, `"queue":"orders"`)
	assert.Contains(t, body, `"messageId":"m1"`)
	assert.True(t, pollers.Active("orders"), "subscription must start the poll loop")
}

func TestMessageStream_PollerStopsAfterLastClient(t *testing.T) {
	queues := &fakeQueueStore{
		receiveMessages: func(ctx context.Context, _ string, _ domain.ReceiveParams) ([]domain.Message, error) {
			return nil, nil
		},
	}

	ts, pollers := wireStreamServer(t, testConfig(), queues)
	conn := dialStream(t, ts, "orders")

	require.Eventually(t, func() bool { return pollers.Active("orders") },
		2*time.Second, time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return !pollers.Active("orders") },
		2*time.Second, time.Millisecond, "poll loop must stop when the last subscriber leaves")
}

func TestMessageStream_PerIPLimitRejectsWith429(t *testing.T) {
	queues := &fakeQueueStore{
		receiveMessages: func(ctx context.Context, _ string, _ domain.ReceiveParams) ([]domain.Message, error) {
			return nil, nil
		},
	}

	cfg := testConfig()
	cfg.WSMaxPerIP = 1
	ts, _ := wireStreamServer(t, cfg, queues)

	dialStream(t, ts, "orders")

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/messages/orders"
	_, resp, err := ws.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMessageStream_StreamErrorEventOnPollFailure(t *testing.T) {
	queues := &fakeQueueStore{
		receiveMessages: func(ctx context.Context, _ string, _ domain.ReceiveParams) ([]domain.Message, error) {
			return nil, context.DeadlineExceeded
		},
	}

	ts, _ := wireStreamServer(t, testConfig(), queues)
	conn := dialStream(t, ts, "orders")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"error"`)
}
