package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	Username string
	Password string
	SSLMode  string
	MaxConns int32
	MinConns int32
}

type StripeConfig struct {
	APIKey        string
	WebhookSecret string
	// PriceIDs maps subscription tier to the Stripe price ID created by the
	// plan bootstrap.
	PriceIDs map[string]string
}

type AuthConfig struct {
	JWTSecret string
}

type RepositoriesConfig struct {
	Postgres PostgresConfig
}

type Config struct {
	Repositories    RepositoriesConfig
	Stripe          StripeConfig
	Auth            AuthConfig
	ServerPort      string
	MetricsPort     string
	PprofPort       string
	ShutdownTimeout time.Duration
}

func Load() (*Config, error) {
	cfg := &Config{
		Repositories: RepositoriesConfig{
			Postgres: PostgresConfig{
				Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
				DB:       getEnvOrDefault("POSTGRES_DB", "publimicro"),
				Username: getEnvOrDefault("POSTGRES_USER", "postgres"),
				Password: getEnvOrDefault("POSTGRES_PASSWORD", ""),
				SSLMode:  getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
				MaxConns: 30,
				MinConns: 5,
			},
		},
		Stripe: StripeConfig{
			APIKey:        os.Getenv("STRIPE_API_KEY"),
			WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
			PriceIDs: map[string]string{
				"premium": os.Getenv("STRIPE_PRICE_ID_PREMIUM"),
				"pro":     os.Getenv("STRIPE_PRICE_ID_PRO"),
			},
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrDefault("JWT_SECRET", "dev-secret-change-me"),
		},
		ServerPort:      getEnvOrDefault("SERVER_PORT", "8090"),
		MetricsPort:     getEnvOrDefault("METRICS_PORT", "9092"),
		PprofPort:       getEnvOrDefault("PPROF_PORT", "6060"),
		ShutdownTimeout: getEnvDurationSeconds("SHUTDOWN_TIMEOUT_SECONDS", 5*time.Second),
	}

	if cfg.Repositories.Postgres.Password == "" {
		return nil, fmt.Errorf("POSTGRES_PASSWORD environment variable is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDurationSeconds(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return defaultValue
	}
	return time.Duration(seconds) * time.Second
}
