package logger_test

import (
	"errors"

	"github.com/mhan/momo/pkg/config"
	"github.com/mhan/momo/pkg/logger"
)

// Example_basic demonstrates basic logger usage
func Example_basic() {
	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "info",
		LogFormat: "console",
	}

	log := logger.New(cfg)

	// Basic logging
	log.Debug("This won't appear (level is info)")
	log.Info("Application started")
	log.Warn("Holdings file older than expected")
	log.Error("Failed to connect")

	// Formatted logging
	log.Infof("Synced %d constituents", 503)
	log.Warnf("Retry attempt %d of %d", 3, 5)
}

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Add single field
	cohortLog := log.WithField("cohort", "sp500")
	cohortLog.Info("Ranking computed")

	// Add multiple fields
	priceLog := log.WithFields(map[string]interface{}{
		"symbol": "NVDA",
		"close":  181.77,
		"date":   "2026-08-20",
	})
	priceLog.Info("Price stored")
}

// Example_withError demonstrates error logging
func Example_withError() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "error",
		LogFormat: "json",
	}

	log := logger.New(cfg)

	// Log with error
	err := errors.New("database connection timeout")
	log.WithError(err).Error("Failed to load price snapshots")

	// Combine error with fields
	log.WithError(err).
		WithFields(map[string]interface{}{
			"retry_count": 3,
			"timeout_ms":  5000,
		}).
		Error("Connection failed after retries")
}
