package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/wmachuca/localstack-studio/internal/domain"
)

// State of a Consumer's connection to the message stream.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateReconnecting State = "reconnecting"
	StateClosed       State = "closed"
)

const (
	defaultReconnectDelay   = 3 * time.Second
	defaultHandshakeTimeout = 3 * time.Second
	defaultInitialWait      = 3 * time.Second
)

// Config tunes a Consumer.
type Config struct {
	// BaseURL is the server root, e.g. "ws://localhost:8080".
	BaseURL string

	// ReconnectDelay is the fixed wait between connection attempts.
	// Defaults to 3s.
	ReconnectDelay time.Duration

	// InitialWait is how long after the stream opens an empty collection
	// counts as still loading. Defaults to 3s.
	InitialWait time.Duration

	// Capacity bounds the message collection. Defaults to DefaultCapacity.
	Capacity int

	// Order is the sort direction of the message view. Defaults to
	// OrderAscending, oldest send time first.
	Order Order

	// Dialer overrides the WebSocket dialer. Defaults to one with a 3s
	// handshake timeout.
	Dialer *websocket.Dialer
}

// Snapshot is a point-in-time view of a Consumer.
//
// Settled distinguishes "queue is empty" from "still loading": it turns true
// once the stream has been open for the initial wait, or as soon as the first
// message arrives, and resets on every reconnect or queue switch.
type Snapshot struct {
	Queue     string
	State     State
	Settled   bool
	Messages  []domain.Message
	LastError string
}

type consumerCmd interface{ isConsumerCmd() }

type baseConsumerCmd struct{}

func (baseConsumerCmd) isConsumerCmd() {}

type selectCmd struct {
	baseConsumerCmd
	queue string
}

type clearCmd struct{ baseConsumerCmd }

type orderCmd struct {
	baseConsumerCmd
	order Order
}

type snapshotCmd struct {
	baseConsumerCmd
	replyChannel chan Snapshot
}

type closeCmd struct{ baseConsumerCmd }

type dialResultCmd struct {
	baseConsumerCmd
	gen        uint64
	connection *websocket.Conn
	err        error
}

type retryCmd struct {
	baseConsumerCmd
	gen uint64
}

type streamEventCmd struct {
	baseConsumerCmd
	gen   uint64
	event domain.StreamEvent
}

type connClosedCmd struct {
	baseConsumerCmd
	gen uint64
	err error
}

type settledCmd struct {
	baseConsumerCmd
	gen uint64
}

// Consumer subscribes to one queue's message stream and reduces the incoming
// events into a bounded, deduplicated Collection. It reconnects automatically
// after a fixed delay when the connection drops or cannot be established.
//
// Like the server hub it is an actor: one goroutine owns all state, fed by a
// command channel. Every dial attempt gets a generation number; results and
// events from superseded generations are discarded, so a slow dial can never
// leak a connection or stale messages into a later selection.
type Consumer struct {
	baseURL        string
	dialer         *websocket.Dialer
	clock          clockwork.Clock
	reconnectDelay time.Duration
	initialWait    time.Duration

	cmdCh chan consumerCmd
	done  chan struct{}

	// Actor-owned state, touched only from run.
	queue      string
	state      State
	settled    bool
	gen        uint64
	connection *websocket.Conn
	collection *Collection
	lastError  string
}

func NewConsumer(cfg Config, clock clockwork.Clock) *Consumer {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: defaultHandshakeTimeout}
	}
	delay := cfg.ReconnectDelay
	if delay <= 0 {
		delay = defaultReconnectDelay
	}
	initialWait := cfg.InitialWait
	if initialWait <= 0 {
		initialWait = defaultInitialWait
	}

	c := &Consumer{
		baseURL:        cfg.BaseURL,
		dialer:         dialer,
		clock:          clock,
		reconnectDelay: delay,
		initialWait:    initialWait,
		cmdCh:          make(chan consumerCmd, 64),
		done:           make(chan struct{}),
		state:          StateIdle,
		collection:     NewCollection(cfg.Capacity, cfg.Order),
	}
	go c.run()
	return c
}

// Select switches the consumer to a queue. The collection is reset and a new
// connection is dialed; any previous connection is torn down.
func (c *Consumer) Select(queue string) {
	c.send(selectCmd{queue: queue})
}

// Clear empties the message collection without touching the connection.
func (c *Consumer) Clear() {
	c.send(clearCmd{})
}

// SetOrder switches the sort direction of the message view.
func (c *Consumer) SetOrder(order Order) {
	c.send(orderCmd{order: order})
}

// Snapshot returns the consumer's current state and messages.
func (c *Consumer) Snapshot() Snapshot {
	replyCh := make(chan Snapshot, 1)
	select {
	case c.cmdCh <- snapshotCmd{replyChannel: replyCh}:
	case <-c.done:
		return Snapshot{State: StateClosed}
	}

	select {
	case snapshot := <-replyCh:
		return snapshot
	case <-c.done:
		return Snapshot{State: StateClosed}
	}
}

// Close tears down the connection and stops the consumer permanently.
func (c *Consumer) Close() {
	c.send(closeCmd{})
	<-c.done
}

func (c *Consumer) send(cmd consumerCmd) bool {
	select {
	case c.cmdCh <- cmd:
		return true
	case <-c.done:
		return false
	}
}

func (c *Consumer) run() {
	defer close(c.done)

	for cmd := range c.cmdCh {
		switch cmd := cmd.(type) {
		case selectCmd:
			c.handleSelect(cmd.queue)
		case clearCmd:
			c.collection.Clear()
		case orderCmd:
			c.collection.SetOrder(cmd.order)
		case snapshotCmd:
			cmd.replyChannel <- Snapshot{
				Queue:     c.queue,
				State:     c.state,
				Settled:   c.settled,
				Messages:  c.collection.Messages(),
				LastError: c.lastError,
			}
		case dialResultCmd:
			c.handleDialResult(cmd)
		case retryCmd:
			c.handleRetry(cmd.gen)
		case streamEventCmd:
			c.handleStreamEvent(cmd)
		case connClosedCmd:
			c.handleConnClosed(cmd)
		case settledCmd:
			if cmd.gen == c.gen && c.state == StateOpen {
				c.settled = true
			}
		case closeCmd:
			c.teardown()
			c.state = StateClosed
			return
		default:
			slog.Warn("Consumer received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (c *Consumer) handleSelect(queue string) {
	c.teardown()
	c.queue = queue
	c.collection.Clear()
	c.lastError = ""
	c.settled = false

	if queue == "" {
		c.state = StateIdle
		return
	}

	c.state = StateConnecting
	go c.dial(c.gen, queue)
}

func (c *Consumer) handleDialResult(cmd dialResultCmd) {
	if cmd.gen != c.gen {
		// A Select or Close superseded this attempt while it was in flight.
		if cmd.connection != nil {
			_ = cmd.connection.Close()
		}
		return
	}

	if cmd.err != nil {
		slog.Warn("Stream connection failed", "queue", c.queue, "error", cmd.err)
		c.state = StateReconnecting
		c.lastError = cmd.err.Error()
		c.scheduleRetry(c.gen)
		return
	}

	slog.Info("Stream connected", "queue", c.queue)
	c.state = StateOpen
	c.lastError = ""
	c.connection = cmd.connection

	// An empty collection means "loading" until the initial wait lapses
	// without data; then it means the queue really is empty. A queue switch
	// or reconnect bumps the generation, which voids the pending timer.
	c.settled = false
	c.scheduleSettled(c.gen)

	go c.readLoop(c.gen, cmd.connection)
}

func (c *Consumer) handleRetry(gen uint64) {
	if gen != c.gen || c.state != StateReconnecting {
		return
	}
	c.state = StateConnecting
	go c.dial(c.gen, c.queue)
}

func (c *Consumer) handleStreamEvent(cmd streamEventCmd) {
	if cmd.gen != c.gen {
		return
	}
	// The server tags every event with its queue; anything else is not ours.
	if cmd.event.Queue != c.queue {
		return
	}

	if cmd.event.Error != "" {
		c.lastError = cmd.event.Error
		return
	}
	if cmd.event.Message == nil {
		return
	}
	c.collection.Add(*cmd.event.Message)
	c.settled = true
}

func (c *Consumer) handleConnClosed(cmd connClosedCmd) {
	if cmd.gen != c.gen {
		return
	}

	slog.Warn("Stream connection lost", "queue", c.queue, "error", cmd.err)
	if c.connection != nil {
		_ = c.connection.Close()
		c.connection = nil
	}
	c.gen++
	c.state = StateReconnecting
	c.settled = false
	if cmd.err != nil {
		c.lastError = cmd.err.Error()
	}
	c.scheduleRetry(c.gen)
}

// teardown invalidates the current generation and closes any live connection.
func (c *Consumer) teardown() {
	c.gen++
	if c.connection != nil {
		_ = c.connection.Close()
		c.connection = nil
	}
}

func (c *Consumer) scheduleSettled(gen uint64) {
	go func() {
		timer := c.clock.NewTimer(c.initialWait)
		defer timer.Stop()
		select {
		case <-timer.Chan():
			c.send(settledCmd{gen: gen})
		case <-c.done:
		}
	}()
}

func (c *Consumer) scheduleRetry(gen uint64) {
	go func() {
		timer := c.clock.NewTimer(c.reconnectDelay)
		defer timer.Stop()
		select {
		case <-timer.Chan():
			c.send(retryCmd{gen: gen})
		case <-c.done:
		}
	}()
}

func (c *Consumer) dial(gen uint64, queue string) {
	url := fmt.Sprintf("%s/ws/messages/%s", c.baseURL, queue)
	connection, resp, err := c.dialer.Dial(url, http.Header{})
	if err != nil && resp != nil {
		_ = resp.Body.Close()
	}
	if !c.send(dialResultCmd{gen: gen, connection: connection, err: err}) && connection != nil {
		_ = connection.Close()
	}
}

func (c *Consumer) readLoop(gen uint64, connection *websocket.Conn) {
	for {
		_, data, err := connection.ReadMessage()
		if err != nil {
			c.send(connClosedCmd{gen: gen, err: err})
			return
		}

		var event domain.StreamEvent
		if err := json.Unmarshal(data, &event); err != nil {
			slog.Debug("Dropping malformed stream payload", "error", err)
			continue
		}
		c.send(streamEventCmd{gen: gen, event: event})
	}
}
