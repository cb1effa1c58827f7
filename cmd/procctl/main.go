// procctl runs one-shot administrative commands against the procurement database.
//
// Usage: go run ./cmd/procctl <command> [args]
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"procurement-flow/internal/adapters/cli"
	"procurement-flow/internal/app"
	"procurement-flow/internal/config"
	"procurement-flow/internal/db"
	"procurement-flow/internal/logging"
	"procurement-flow/internal/notify"
	"procurement-flow/internal/settings"
	"procurement-flow/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, "warn")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, cli.Usage)
		os.Exit(2)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool)
	provider := settings.NewProvider(store, logger)
	if err := provider.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "settings: %v\n", err)
		os.Exit(1)
	}
	svc, err := app.NewAppService(app.Deps{
		Store:    store,
		Settings: provider,
		Notifier: notify.NewLogNotifier(logger),
		Logger:   logger,
		LinkBase: cfg.PublicBaseURL,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cli.Run(ctx, svc, cli.Config{JWTSecret: cfg.JWTSecret}, args, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, cli.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
