// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/zsmoke/pickup-service/internal/domain"
)

// Config is everything the service needs at startup.
type Config struct {
	HTTPAddr string

	// StoreBackend selects the order store: "redis" or "memory".
	StoreBackend string
	RedisAddr    string

	// EventLogPath is the SQLite file for the transition audit log; empty
	// disables it.
	EventLogPath string

	// CronSecret protects GET /cron/expire-orders.
	CronSecret string

	// SMSProvider selects the outbound SMS implementation: "twilio" or "log".
	SMSProvider      string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string

	// StorePhones receive the new-order notification per location.
	StorePhones map[domain.Location]string

	// SweepInterval > 0 runs the expiration sweeper in-process as well as
	// via the cron endpoint.
	SweepInterval time.Duration
}

// Load reads the environment (after best-effort .env loading) and validates
// the combinations that cannot work.
func Load() (*Config, error) {
	// Missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		StoreBackend:     getEnv("STORE_BACKEND", "redis"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		EventLogPath:     getEnv("EVENT_LOG_PATH", "./data/order-events.db"),
		CronSecret:       os.Getenv("CRON_SECRET"),
		SMSProvider:      getEnv("SMS_PROVIDER", "log"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		StorePhones: map[domain.Location]string{
			domain.LocationNorth:         os.Getenv("STORE_PHONE_NORTH"),
			domain.LocationSouthCongress: os.Getenv("STORE_PHONE_SOUTH_CONGRESS"),
		},
	}

	switch cfg.StoreBackend {
	case "redis", "memory":
	default:
		return nil, fmt.Errorf("config: unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.SMSProvider {
	case "log":
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioFromNumber == "" {
			return nil, fmt.Errorf("config: SMS_PROVIDER=twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER")
		}
	default:
		return nil, fmt.Errorf("config: unknown SMS_PROVIDER %q", cfg.SMSProvider)
	}

	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: parse SWEEP_INTERVAL: %w", err)
		}
		cfg.SweepInterval = d
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
