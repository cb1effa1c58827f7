// migrate applies the embedded schema migrations to DATABASE_URL.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"os"
	"time"

	"procurement-flow/internal/config"
	"procurement-flow/internal/db"
	"procurement-flow/internal/logging"
	"procurement-flow/migrations"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect", zap.Error(err))
	}
	defer pool.Close()

	applied, err := migrations.Apply(ctx, pool, logger)
	if err != nil {
		logger.Fatal("migrate", zap.Strings("applied", applied), zap.Error(err))
	}
	logger.Info("all migrations processed", zap.Int("applied", len(applied)))
}
