package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName  string
	HTTPPort     string
	PostgresDSN  string
	KafkaBrokers []string

	SessionDefaultDuration time.Duration
	SweepInterval          time.Duration
	EligibilityURL         string
	EligibilityTimeout     time.Duration
	OutboxBatchSize        int
}

func Load() (Config, error) {
	// A missing .env file is not an error; env vars win either way.
	_ = godotenv.Load()

	service := os.Getenv("SERVICE_NAME")
	if service == "" {
		service = "plenary"
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

	return Config{
		ServiceName:  service,
		HTTPPort:     port,
		PostgresDSN:  os.Getenv("POSTGRES_DSN"),
		KafkaBrokers: brokers,

		SessionDefaultDuration: envSeconds("SESSION_DEFAULT_DURATION_SECONDS", 60*time.Second),
		SweepInterval:          envSeconds("SWEEP_INTERVAL_SECONDS", 10*time.Second),
		EligibilityURL:         strings.TrimSpace(os.Getenv("ELIGIBILITY_URL")),
		EligibilityTimeout:     envSeconds("ELIGIBILITY_TIMEOUT_SECONDS", 2*time.Second),
		OutboxBatchSize:        envInt("OUTBOX_BATCH_SIZE", 100),
	}, nil
}

func envSeconds(name string, fallback time.Duration) time.Duration {
	value := envInt(name, 0)
	if value <= 0 {
		return fallback
	}
	return time.Duration(value) * time.Second
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
