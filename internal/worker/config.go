// Package worker ties the detection engine, reminder scheduler, and
// throttle sweeper to the queue and the clock.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds worker tuning.
type Config struct {
	// BatchTimeout bounds the processing of one location batch.
	// Default: 60 seconds
	BatchTimeout time.Duration

	// RetryAttempts is the number of times a failed batch is retried
	// in-process before the message is dropped.
	// Default: 3
	RetryAttempts uint

	// RetryDelay is the fixed delay between in-process retries.
	// Default: 30 seconds
	RetryDelay time.Duration

	// ReminderInterval is the period of the reminder scheduler loop.
	// Default: 5 minutes
	ReminderInterval time.Duration

	// SweepInterval is the period of the throttle sweep loop.
	// Default: 10 minutes
	SweepInterval time.Duration

	// SearchRadiusM is the danger-zone candidate search radius.
	// Default: 1000
	SearchRadiusM float64

	// DangerAlertTTL is the danger re-alert suppression window.
	// Default: 12 hours
	DangerAlertTTL time.Duration

	// ReminderSpacing is the minimum gap between reminder rounds.
	// Default: 15 minutes
	ReminderSpacing time.Duration

	// MaxReminders caps reminder rounds per alert.
	// Default: 4
	MaxReminders int
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		BatchTimeout:     60 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       30 * time.Second,
		ReminderInterval: 5 * time.Minute,
		SweepInterval:    10 * time.Minute,
		SearchRadiusM:    1000,
		DangerAlertTTL:   12 * time.Hour,
		ReminderSpacing:  15 * time.Minute,
		MaxReminders:     4,
	}
}

// ConfigFromEnv builds a Config from environment variables, falling back to
// defaults for unset or unparsable values.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	cfg.BatchTimeout = durationEnv("WORKER_BATCH_TIMEOUT", cfg.BatchTimeout)
	cfg.RetryAttempts = uintEnv("WORKER_RETRY_ATTEMPTS", cfg.RetryAttempts)
	cfg.RetryDelay = durationEnv("WORKER_RETRY_DELAY", cfg.RetryDelay)
	cfg.ReminderInterval = durationEnv("WORKER_REMINDER_INTERVAL", cfg.ReminderInterval)
	cfg.SweepInterval = durationEnv("WORKER_SWEEP_INTERVAL", cfg.SweepInterval)
	cfg.SearchRadiusM = floatEnv("DETECTION_SEARCH_RADIUS_M", cfg.SearchRadiusM)
	cfg.DangerAlertTTL = durationEnv("DETECTION_DANGER_ALERT_TTL", cfg.DangerAlertTTL)
	cfg.ReminderSpacing = durationEnv("REMINDER_SPACING", cfg.ReminderSpacing)
	cfg.MaxReminders = intEnv("REMINDER_MAX_ROUNDS", cfg.MaxReminders)

	return cfg
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func uintEnv(key string, fallback uint) uint {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint(n)
		}
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
