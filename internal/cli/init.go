// Package cli holds the initialization steps shared by cmd/financeflow and
// cmd/financeflow-worker.
package cli

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"financeflow/internal/config"
	applog "financeflow/internal/log"
	"financeflow/internal/storage"
)

// SetupLogger initializes structured logging for the given component and
// installs it as the process default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: component,
	})
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development. Errors are ignored
// silently as the file is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// MustConfig loads configuration and validates it, exiting the process on
// validation failure.
func MustConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// MustSQLite opens the snapshot database, exiting the process on failure.
func MustSQLite(logger *applog.Logger, dbPath string) *storage.SQLiteStore {
	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite snapshot store", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return store
}
