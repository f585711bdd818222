package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrLedgerSecretRequired = errors.New("LEDGER_SECRET_KEY is required")

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	LedgerSecretKey      string
	ElectionYear         int
	LedgerAppendAttempts int
	OutboxPollInterval   time.Duration

	AutoMigrate  bool
	SeedDemoData bool
}

func Load() (Config, error) {
	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "ballotbox"
	}

	port := os.Getenv("HTTP_PORT")
	if port == "" {
		port = "8080"
	}

	var brokers []string
	for _, value := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			brokers = append(brokers, value)
		}
	}
	if len(brokers) == 0 {
		brokers = []string{"localhost:9092"}
	}

	secret := os.Getenv("LEDGER_SECRET_KEY")
	if strings.TrimSpace(secret) == "" {
		return Config{}, ErrLedgerSecretRequired
	}

	year, err := envInt("ELECTION_YEAR", 0)
	if err != nil {
		return Config{}, err
	}
	attempts, err := envInt("LEDGER_APPEND_ATTEMPTS", 5)
	if err != nil {
		return Config{}, err
	}
	if attempts <= 0 {
		return Config{}, fmt.Errorf("LEDGER_APPEND_ATTEMPTS must be positive, got %d", attempts)
	}
	poll, err := envDuration("OUTBOX_POLL_INTERVAL", 2*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		LedgerSecretKey:      secret,
		ElectionYear:         year,
		LedgerAppendAttempts: attempts,
		OutboxPollInterval:   poll,

		AutoMigrate:  envBool("AUTO_MIGRATE", true),
		SeedDemoData: envBool("SEED_DEMO_DATA", false),
	}, nil
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, nil
}

func envDuration(name string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", name, err)
	}
	return value, nil
}
