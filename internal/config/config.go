package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the sales assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// Default customer attached to a call when the begin-call request does not
	// name one.
	CustomerID int64

	ConversationLogPath string
	InteractionLogPath  string
	DatabaseURL         string
	CustomerBookPath    string

	// Provider selects the collaborator backends: auto, gateway or mock.
	Provider string

	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	TranscribeURL string

	TurnTimeout           time.Duration
	CallInactivityTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:              envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:      envOrDefault("APP_METRICS_NAMESPACE", "pitchline"),
		AllowAnyOrigin:        false,
		CustomerID:            1,
		ConversationLogPath:   envOrDefault("CONVERSATION_LOG_PATH", "conversation_log.csv"),
		InteractionLogPath:    envOrDefault("INTERACTION_LOG_PATH", "interactions.csv"),
		DatabaseURL:           trimmedEnv("DATABASE_URL"),
		CustomerBookPath:      trimmedEnv("CUSTOMER_BOOK_PATH"),
		Provider:              envOrDefault("PROVIDER", "auto"),
		LLMGatewayURL:         trimmedEnv("LLM_GATEWAY_URL"),
		LLMAPIKey:             trimmedEnv("LLM_API_KEY"),
		LLMModel:              envOrDefault("LLM_MODEL", "gpt-4o-mini"),
		TranscribeURL:         trimmedEnv("TRANSCRIBE_URL"),
		TurnTimeout:           60 * time.Second,
		ShutdownTimeout:       15 * time.Second,
		CallInactivityTimeout: 5 * time.Minute,
	}

	var err error
	cfg.CustomerID, err = int64FromEnv("CUSTOMER_ID", cfg.CustomerID)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("APP_TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CallInactivityTimeout, err = durationFromEnv("APP_CALL_INACTIVITY_TIMEOUT", cfg.CallInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.CustomerID <= 0 {
		return Config{}, fmt.Errorf("CUSTOMER_ID must be positive")
	}
	if strings.TrimSpace(cfg.ConversationLogPath) == "" {
		return Config{}, fmt.Errorf("CONVERSATION_LOG_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.InteractionLogPath) == "" {
		return Config{}, fmt.Errorf("INTERACTION_LOG_PATH must not be empty")
	}
	if cfg.TurnTimeout < time.Second {
		return Config{}, fmt.Errorf("APP_TURN_TIMEOUT must be at least 1s")
	}
	if cfg.CallInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_CALL_INACTIVITY_TIMEOUT must be at least 5s")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "auto", "gateway", "mock":
	default:
		return Config{}, fmt.Errorf("invalid PROVIDER: %q (expected auto|gateway|mock)", cfg.Provider)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := trimmedEnv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(trimmedEnv(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
