// Package postgres implements core.Store on PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement-flow/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Observer is told how long each transaction took and whether it failed.
type Observer func(d time.Duration, err error)

// Store runs core transactions on a pgx pool.
type Store struct {
	pool    *pgxpool.Pool
	observe Observer
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithObserver returns a copy of s reporting every transaction to fn.
func (s *Store) WithObserver(fn Observer) *Store {
	c := *s
	c.observe = fn
	return &c
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx core.Tx) error) (err error) {
	if s.observe != nil {
		start := time.Now()
		defer func() { s.observe(time.Since(start), err) }()
	}
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(ctx, &tx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}

var _ core.Tx = (*tx)(nil)

// notFound maps pgx.ErrNoRows to core.ErrNotFound and wraps anything else.
func notFound(err error, what string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
	}
	return fmt.Errorf("get %s %v: %w", what, id, err)
}

// writeErr turns unique and check violations into conflicts.
func writeErr(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &core.ConflictError{Code: "DUPLICATE", Message: fmt.Sprintf("%s: %s", op, pgErr.Detail)}
		case "23514":
			return &core.ConflictError{Code: "CONSTRAINT_VIOLATION", Message: fmt.Sprintf("%s: %s", op, pgErr.ConstraintName)}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ── settings ─────────────────────────────────────────────────────────────────

func (t *tx) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := t.tx.QueryRow(ctx, `SELECT value FROM app_settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, true, nil
}

func (t *tx) PutSetting(ctx context.Context, key, value string) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}
