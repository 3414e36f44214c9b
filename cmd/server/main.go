// Package main is the entry point for the link board server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
// 1. Read configuration (.env, config.yaml, environment variables)
// 2. Create the logger
// 3. Hand both to internal/server and start it
//
// All actual logic lives in imported packages (internal/server, internal/graph, etc.).
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/sakif/linkboard/internal/config"
	"github.com/sakif/linkboard/internal/server"
)

// version is set at build time:
//
//	go build -ldflags "-X main.version=1.4.0" ./cmd/server
var version = "0.0.0"

func main() {
	// === 1. LOAD .env ===
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not read .env", slog.String("error", err.Error()))
	}

	// === 2. READ CONFIGURATION ===
	path := os.Getenv("LINKBOARD_CONFIG")
	if path == "" {
		path = config.DefaultPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. SET UP LOGGING ===
	// Text for humans in dev mode, JSON for log collectors everywhere else.
	logger := newLogger(cfg.DevMode)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 4. DATABASE DIRECTORY ===
	// sqlite:data/linkboard.db needs data/ to exist (like `mkdir -p`).
	if dbPath, ok := strings.CutPrefix(cfg.DatabaseURL, "sqlite:"); ok && dbPath != ":memory:" {
		dbDir := filepath.Dir(strings.TrimPrefix(dbPath, "//"))
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	// === 5. CREATE AND START THE SERVER ===
	v := version
	if cfg.DevMode {
		v += "-dev"
	}

	srv, err := server.New(context.Background(), cfg, v, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(devMode bool) *slog.Logger {
	if devMode {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
