package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stack-overclaw/overclaw/internal/server"
	"github.com/stack-overclaw/overclaw/internal/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	baseURL := os.Getenv("OVERCLAW_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + port
	}

	store := openStore(logger)
	defer store.Close()

	if seedEnabled() {
		if err := storage.Seed(store, baseURL); err != nil {
			logger.Warn("seed store", zap.Error(err))
		}
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: server.New(store, baseURL, logger),
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	logger.Info("overclaw running", zap.String("addr", "http://localhost:"+port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}

// openStore selects the backing store once at startup: SQLite when a
// data directory is usable, the in-memory store otherwise (or when
// forced via OVERCLAW_MEMORY).
func openStore(logger *zap.Logger) storage.Store {
	if envFlag("OVERCLAW_MEMORY") {
		logger.Info("using in-memory store")
		return storage.NewMemoryStore()
	}

	dataDir := os.Getenv("OVERCLAW_DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logger.Warn("create data dir, falling back to in-memory store",
			zap.String("dir", dataDir), zap.Error(err))
		return storage.NewMemoryStore()
	}

	dbPath := filepath.Join(dataDir, "overclaw.db")
	db, err := storage.NewDB(dbPath)
	if err != nil {
		logger.Warn("open database, falling back to in-memory store",
			zap.String("path", dbPath), zap.Error(err))
		return storage.NewMemoryStore()
	}
	logger.Info("using sqlite store", zap.String("path", dbPath))
	return db
}

// seedEnabled reports whether demo seeding is on. Enabled unless
// OVERCLAW_SEED is explicitly disabled.
func seedEnabled() bool {
	switch os.Getenv("OVERCLAW_SEED") {
	case "0", "false", "no":
		return false
	}
	return true
}

func envFlag(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "yes":
		return true
	}
	return false
}
