package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/wmachuca/localstack-studio/internal/domain"
	"github.com/wmachuca/localstack-studio/internal/metrics"
)

const breakerFailureThreshold = 3

// Sink receives the events a poll loop produces. In production it is
// Hub.Publish; tests substitute a recorder.
type Sink func(queue string, event domain.StreamEvent)

// PollConfig tunes every poll loop in a PollerSet.
type PollConfig struct {
	Receive      domain.ReceiveParams
	Pace         time.Duration
	ErrorBackoff time.Duration
}

// DefaultPollConfig matches the console's production tuning: 10s long poll,
// 1s visibility so unread messages reappear quickly, small pacing delay so a
// busy queue cannot monopolize the scheduler, 5s backoff on failures.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Receive: domain.ReceiveParams{
			WaitTimeSeconds:     10,
			VisibilityTimeout:   1,
			MaxNumberOfMessages: 10,
		},
		Pace:         100 * time.Millisecond,
		ErrorBackoff: 5 * time.Second,
	}
}

// PollerSet runs one long-poll loop per watched queue. Loops are fully
// independent: a stalled receive on one queue never delays another.
//
// The poller never deletes messages. It relies on the short visibility
// timeout to make undeleted messages reappear on later polls; deduplication
// is the subscriber's job.
type PollerSet struct {
	receiver domain.MessageReceiver
	sink     Sink
	clock    clockwork.Clock
	cfg      PollConfig

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewPollerSet(receiver domain.MessageReceiver, sink Sink, clock clockwork.Clock, cfg PollConfig) *PollerSet {
	return &PollerSet{
		receiver: receiver,
		sink:     sink,
		clock:    clock,
		cfg:      cfg,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Start launches the poll loop for a queue. No-op if one is already running.
func (p *PollerSet) Start(queue string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, running := p.cancels[queue]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancels[queue] = cancel
	p.wg.Add(1)
	metrics.PollerRunning.Inc()

	go p.run(ctx, queue)

	slog.Info("Started polling queue", "queue", queue)
}

// Stop cancels the poll loop for a queue. No-op if none is running.
func (p *PollerSet) Stop(queue string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cancel, running := p.cancels[queue]
	if !running {
		return
	}

	cancel()
	delete(p.cancels, queue)
	metrics.PollerRunning.Dec()

	slog.Info("Stopped polling queue", "queue", queue)
}

// Active reports whether a poll loop is running for the queue.
func (p *PollerSet) Active(queue string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, running := p.cancels[queue]
	return running
}

// StopAll cancels every poll loop and waits for the goroutines to exit.
func (p *PollerSet) StopAll() {
	p.mu.Lock()
	for queue, cancel := range p.cancels {
		cancel()
		delete(p.cancels, queue)
		metrics.PollerRunning.Dec()
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *PollerSet) run(ctx context.Context, queue string) {
	defer p.wg.Done()

	// The breaker converts a dead endpoint into fast open-state failures so
	// the loop spends its time in backoff instead of piling up slow dials.
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "poll:" + queue,
		Timeout: p.cfg.ErrorBackoff,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
	})

	for {
		if ctx.Err() != nil {
			return
		}

		start := p.clock.Now()
		result, err := breaker.Execute(func() (any, error) {
			return p.receiver.ReceiveMessages(ctx, queue, p.cfg.Receive)
		})
		metrics.PollerReceiveDuration.Observe(p.clock.Since(start).Seconds())

		if err != nil {
			if ctx.Err() != nil {
				return
			}

			metrics.PollerErrors.WithLabelValues(queue).Inc()
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Debug("Poll skipped, circuit open", "queue", queue)
			} else {
				slog.Warn("Poll failed, backing off", "queue", queue, "error", err)
			}

			// Subscribers see poll failures as connection-level error
			// events; the channel itself stays up and the loop retries.
			p.sink(queue, domain.StreamEvent{Queue: queue, Error: err.Error()})

			if !p.sleep(ctx, p.cfg.ErrorBackoff) {
				return
			}
			continue
		}

		messages := result.([]domain.Message)
		if len(messages) > 0 {
			metrics.PollerMessagesReceived.WithLabelValues(queue).Add(float64(len(messages)))
		}
		for i := range messages {
			p.sink(queue, domain.StreamEvent{Queue: queue, Message: &messages[i]})
		}

		// Empty batches are normal: the long poll timed out with nothing to
		// deliver. Loop again after the pacing delay.
		if !p.sleep(ctx, p.cfg.Pace) {
			return
		}
	}
}

// sleep waits for d, returning false if the context was cancelled first.
func (p *PollerSet) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
