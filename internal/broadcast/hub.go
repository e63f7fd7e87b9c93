package broadcast

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/wmachuca/localstack-studio/internal/domain"
	"github.com/wmachuca/localstack-studio/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second
	stopTimeout    = 10 * time.Second
)

type queueClients map[*websocket.Conn]*clientWriter

// hubCmd is the command interface for the Hub actor.
type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	queue        string
	connection   *websocket.Conn
	errorChannel chan error
}

type unregisterCmd struct {
	baseHubCmd
	queue      string
	connection *websocket.Conn
}

type publishCmd struct {
	baseHubCmd
	queue string
	data  []byte
}

type clientCountCmd struct {
	baseHubCmd
	queue        string
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub is the per-queue connection registry. It owns the mapping from queue
// name to live subscriber connections and fans published events out to them.
//
// A channel for a queue exists exactly while the queue has subscribers:
// onFirstClient fires when a queue gains its first subscriber (registry state
// is already updated when it runs, and it runs on the actor goroutine, so
// poller start is atomic with registration), onLastClient when it loses its
// last one.
type Hub struct {
	cmdCh              chan hubCmd
	clock              clockwork.Clock
	channels           map[string]queueClients
	onFirstClient      func(queue string)
	onLastClient       func(queue string)
	maxClientsPerQueue int
	done               chan struct{}
}

func NewHub(onFirstClient, onLastClient func(queue string), clock clockwork.Clock, maxClientsPerQueue int) *Hub {
	h := &Hub{
		cmdCh:              make(chan hubCmd, 256),
		clock:              clock,
		channels:           make(map[string]queueClients),
		onFirstClient:      onFirstClient,
		onLastClient:       onLastClient,
		maxClientsPerQueue: maxClientsPerQueue,
		done:               make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a subscriber connection to a queue's channel, starting the
// queue's poll loop if this is the first subscriber. Returns an error if the
// per-queue client limit is reached.
func (h *Hub) Register(queue string, conn *websocket.Conn) error {
	errCh := make(chan error, 1)
	h.cmdCh <- registerCmd{queue: queue, connection: conn, errorChannel: errCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case err := <-errCh:
		return err
	case <-timer.Chan():
		return fmt.Errorf("register command timed out after %v", commandTimeout)
	}
}

// Unregister removes a subscriber connection from a queue's channel, stopping
// the queue's poll loop if this was the last subscriber.
func (h *Hub) Unregister(queue string, conn *websocket.Conn) {
	h.cmdCh <- unregisterCmd{queue: queue, connection: conn}
}

// Publish delivers an event to every subscriber currently attached to the
// queue. Subscribers attached later never see it.
func (h *Hub) Publish(queue string, event domain.StreamEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal stream event", "queue", queue, "error", err)
		return
	}
	h.cmdCh <- publishCmd{queue: queue, data: data}
}

// ClientCount returns the number of subscribers attached to the queue.
// Returns -1 if the command times out.
func (h *Hub) ClientCount(queue string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{queue: queue, replyChannel: replyCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("ClientCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Stop shuts down the hub, closing all subscriber connections. Blocks until
// the actor goroutine has exited or the stop timeout is reached.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}

	timer := h.clock.NewTimer(stopTimeout)
	defer timer.Stop()

	select {
	case <-h.done:
		slog.Info("Hub stopped gracefully")
	case <-timer.Chan():
		slog.Warn("Hub stop timeout exceeded", "timeout", stopTimeout)
	}
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c)
		case publishCmd:
			h.handlePublish(c)
		case clientCountCmd:
			c.replyChannel <- len(h.channels[c.queue])
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	clients, exists := h.channels[c.queue]

	// Limit check before the channel entry exists: a rejected first
	// subscriber must not leave an empty entry behind, or the next accepted
	// one would find the channel "up" and never start its poller.
	if len(clients) >= h.maxClientsPerQueue {
		slog.Warn("Rejecting client: max clients reached", "queue", c.queue, "max_clients", h.maxClientsPerQueue)
		c.connection.Close()
		c.errorChannel <- fmt.Errorf("max clients per queue (%d) reached", h.maxClientsPerQueue)
		return
	}

	if !exists {
		clients = make(queueClients)
		h.channels[c.queue] = clients
	}

	cw := newClientWriter(c.connection, h.clock)
	clients[c.connection] = cw

	metrics.HubActiveChannels.Set(float64(len(h.channels)))
	metrics.HubConnectedClients.Inc()

	// First subscriber brings the channel up: start the poll loop. Runs on
	// the actor goroutine, after the registry update, so a concurrent
	// publish can never observe a channel without its poller.
	if !exists && h.onFirstClient != nil {
		h.onFirstClient(c.queue)
	}

	slog.Debug("Client registered", "queue", c.queue, "total_clients", len(clients))
	c.errorChannel <- nil
}

func (h *Hub) handleUnregister(c unregisterCmd) {
	clients, exists := h.channels[c.queue]
	if !exists {
		return
	}

	cw, exists := clients[c.connection]
	if !exists {
		return
	}

	cw.stop()
	delete(clients, c.connection)
	metrics.HubConnectedClients.Dec()

	if len(clients) == 0 {
		delete(h.channels, c.queue)
		metrics.HubActiveChannels.Set(float64(len(h.channels)))
		if h.onLastClient != nil {
			h.onLastClient(c.queue)
		}
		slog.Info("Last client disconnected", "queue", c.queue)
	} else {
		slog.Debug("Client unregistered", "queue", c.queue, "remaining_clients", len(clients))
	}
}

func (h *Hub) handlePublish(c publishCmd) {
	clients, exists := h.channels[c.queue]
	if !exists {
		return
	}

	metrics.HubMessagesPublished.WithLabelValues(c.queue).Inc()

	var slow []*websocket.Conn
	for conn, writer := range clients {
		select {
		case writer.sendChannel <- c.data:
		default:
			slow = append(slow, conn)
		}
	}

	for _, conn := range slow {
		slog.Warn("Disconnecting slow client", "queue", c.queue)
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(unregisterCmd{queue: c.queue, connection: conn})
	}
}

func (h *Hub) handleStop() {
	totalClients := 0
	for _, clients := range h.channels {
		totalClients += len(clients)
	}
	slog.Info("Hub shutting down", "channels", len(h.channels), "total_clients", totalClients)

	for queue, clients := range h.channels {
		for _, cw := range clients {
			cw.stopGraceful("Server shutting down")
		}
		delete(h.channels, queue)
		if h.onLastClient != nil {
			h.onLastClient(queue)
		}
	}
	metrics.HubActiveChannels.Set(0)
}
