package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jonboulle/clockwork"

	"github.com/wmachuca/localstack-studio/internal/broadcast"
	"github.com/wmachuca/localstack-studio/internal/config"
	"github.com/wmachuca/localstack-studio/internal/domain"
	"github.com/wmachuca/localstack-studio/internal/dynamo"
	"github.com/wmachuca/localstack-studio/internal/logging"
	"github.com/wmachuca/localstack-studio/internal/server"
	"github.com/wmachuca/localstack-studio/internal/sqs"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupAWSClients(cfg *config.Config) (*sqs.Client, *dynamo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKey, cfg.AWSSecretKey, ""),
		),
	)
	if err != nil {
		slog.Error("Failed to load AWS configuration", "error", err)
		os.Exit(1)
	}

	sqsAPI := awssqs.NewFromConfig(awsCfg, func(o *awssqs.Options) {
		o.BaseEndpoint = &cfg.AWSEndpoint
	})
	dynamoAPI := awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		o.BaseEndpoint = &cfg.AWSEndpoint
	})

	return sqs.New(sqsAPI), dynamo.New(dynamoAPI)
}

func runGracefulShutdown(srv *server.Server, hub *broadcast.Hub, pollers *broadcast.PollerSet) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop()
		pollers.StopAll()

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "endpoint", cfg.AWSEndpoint)

	queues, tables := setupAWSClients(cfg)

	pollCfg := broadcast.PollConfig{
		Receive: domain.ReceiveParams{
			WaitTimeSeconds:     cfg.PollWaitSeconds,
			VisibilityTimeout:   cfg.PollVisibilityTimeout,
			MaxNumberOfMessages: cfg.PollMaxMessages,
		},
		Pace:         cfg.PollPace,
		ErrorBackoff: cfg.PollErrorBackoff,
	}

	// The hub publishes poller output; the pollers start and stop with the
	// hub's first and last subscriber. The closure breaks the construction
	// cycle: pollers only run once a client has registered, by which point
	// hub is set.
	var hub *broadcast.Hub
	pollers := broadcast.NewPollerSet(queues, func(queue string, event domain.StreamEvent) {
		hub.Publish(queue, event)
	}, clock, pollCfg)
	hub = broadcast.NewHub(pollers.Start, pollers.Stop, clock, cfg.WSMaxPerQueue)

	srv := server.NewServer(cfg, queues, tables, hub)

	done := runGracefulShutdown(srv, hub, pollers)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
