package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/wmachuca/localstack-studio/internal/stream"
)

// tail follows a queue's live message stream from the terminal, using the
// same WebSocket endpoint the browser console uses.
func main() {
	var (
		serverURL = flag.String("server", "ws://localhost:8000", "Console server base URL")
		queue     = flag.String("queue", "", "Queue name to follow")
		interval  = flag.Duration("interval", time.Second, "Refresh interval for printing new messages")
		verbose   = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *queue == "" {
		log.Fatal("Queue name required (--queue)")
	}

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	consumer := stream.NewConsumer(stream.Config{BaseURL: *serverURL}, clockwork.NewRealClock())
	defer consumer.Close()

	consumer.Select(*queue)
	fmt.Fprintf(os.Stderr, "Following queue %q on %s\n", *queue, *serverURL)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	seen := make(map[string]bool)
	lastState := stream.State("")
	lastError := ""
	emptyReported := false

	for {
		select {
		case <-sigChan:
			return
		case <-ticker.C:
			snapshot := consumer.Snapshot()

			if snapshot.State != lastState {
				fmt.Fprintf(os.Stderr, "[%s]\n", snapshot.State)
				lastState = snapshot.State
				emptyReported = false
			}
			if snapshot.LastError != "" && snapshot.LastError != lastError {
				fmt.Fprintf(os.Stderr, "error: %s\n", snapshot.LastError)
				lastError = snapshot.LastError
			}

			// Until the stream settles, an empty snapshot just means we are
			// still loading; afterwards it means the queue has nothing.
			if snapshot.Settled && len(snapshot.Messages) == 0 && !emptyReported {
				fmt.Fprintln(os.Stderr, "queue is empty, waiting for messages")
				emptyReported = true
			}

			// Snapshot is oldest first, so unseen messages print in send order.
			for _, msg := range snapshot.Messages {
				if seen[msg.MessageID] {
					continue
				}
				seen[msg.MessageID] = true

				line, err := json.Marshal(msg)
				if err != nil {
					continue
				}
				fmt.Println(string(line))
			}
		}
	}
}
