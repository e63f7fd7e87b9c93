package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	// LocalStack endpoint shared by the SQS and DynamoDB clients.
	AWSEndpoint  string
	AWSRegion    string
	AWSAccessKey string
	AWSSecretKey string

	// Long-poll tuning for the broadcast pollers.
	PollWaitSeconds       int32
	PollVisibilityTimeout int32
	PollMaxMessages       int32
	PollPace              time.Duration
	PollErrorBackoff      time.Duration

	// WebSocket connection limits.
	WSMaxConnections    int64
	WSMaxPerIP          int
	WSMaxPerQueue       int
	WSConnectionsPerSec float64
	WSConnectionBurst   int
}

func Load() (*Config, error) {
	cfg := &Config{
		AppEnv:       getEnv("APP_ENV", "development"),
		Port:         getEnv("PORT", "8000"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFormat:    getEnv("LOG_FORMAT", "text"),
		AWSEndpoint:  getEnv("AWS_ENDPOINT", "http://localhost:4566"),
		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", "test"),
		AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", "test"),
	}

	var err error
	if cfg.PollWaitSeconds, err = getEnvInt32("POLL_WAIT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.PollVisibilityTimeout, err = getEnvInt32("POLL_VISIBILITY_TIMEOUT", 1); err != nil {
		return nil, err
	}
	if cfg.PollMaxMessages, err = getEnvInt32("POLL_MAX_MESSAGES", 10); err != nil {
		return nil, err
	}
	if cfg.PollPace, err = getEnvDuration("POLL_PACE", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.PollErrorBackoff, err = getEnvDuration("POLL_ERROR_BACKOFF", 5*time.Second); err != nil {
		return nil, err
	}

	maxConns, err := getEnvInt32("WS_MAX_CONNECTIONS", 500)
	if err != nil {
		return nil, err
	}
	cfg.WSMaxConnections = int64(maxConns)
	maxPerIP, err := getEnvInt32("WS_MAX_PER_IP", 20)
	if err != nil {
		return nil, err
	}
	cfg.WSMaxPerIP = int(maxPerIP)
	maxPerQueue, err := getEnvInt32("WS_MAX_PER_QUEUE", 50)
	if err != nil {
		return nil, err
	}
	cfg.WSMaxPerQueue = int(maxPerQueue)
	burst, err := getEnvInt32("WS_CONNECTION_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.WSConnectionBurst = int(burst)
	cfg.WSConnectionsPerSec = 10
	if raw := os.Getenv("WS_CONNECTIONS_PER_SEC"); raw != "" {
		if cfg.WSConnectionsPerSec, err = strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("WS_CONNECTIONS_PER_SEC must be a number: %w", err)
		}
	}

	if cfg.AWSEndpoint == "" {
		return nil, fmt.Errorf("AWS_ENDPOINT is required")
	}
	if cfg.PollWaitSeconds < 0 || cfg.PollWaitSeconds > 20 {
		return nil, fmt.Errorf("POLL_WAIT_SECONDS must be between 0 and 20, got %d", cfg.PollWaitSeconds)
	}
	if cfg.PollVisibilityTimeout < 0 {
		return nil, fmt.Errorf("POLL_VISIBILITY_TIMEOUT must not be negative, got %d", cfg.PollVisibilityTimeout)
	}
	if cfg.PollMaxMessages < 1 || cfg.PollMaxMessages > 10 {
		return nil, fmt.Errorf("POLL_MAX_MESSAGES must be between 1 and 10, got %d", cfg.PollMaxMessages)
	}
	if cfg.WSMaxPerQueue < 1 {
		return nil, fmt.Errorf("WS_MAX_PER_QUEUE must be at least 1, got %d", cfg.WSMaxPerQueue)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt32(key string, defaultValue int32) (int32, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return int32(v), nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration like 100ms or 5s: %w", key, err)
	}
	return d, nil
}
