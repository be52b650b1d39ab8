package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"restaurant-core/db"
	"restaurant-core/logger"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applyMigrations runs every embedded file not yet listed in
// schema_migrations, each inside its own transaction, in name order.
func applyMigrations(ctx context.Context, log *logger.Logger) error {
	if _, err := db.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	applied := 0
	for _, name := range names {
		ok, err := applyOne(ctx, name)
		if err != nil {
			return err
		}
		if ok {
			applied++
			log.Info(ctx, "migration_applied", "migration applied", "file", name)
		}
	}
	log.Info(ctx, "migrations_done", "schema up to date", "applied", applied, "total", len(names))
	return nil
}

func applyOne(ctx context.Context, name string) (bool, error) {
	body, err := migrationsFS.ReadFile(name)
	if err != nil {
		return false, fmt.Errorf("read migration %s: %w", name, err)
	}

	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, fmt.Errorf("begin %s: %w", name, err)
	}
	defer tx.Rollback(ctx)

	var seen bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`, name,
	).Scan(&seen); err != nil {
		return false, fmt.Errorf("check %s: %w", name, err)
	}
	if seen {
		return false, nil
	}
	if _, err := tx.Exec(ctx, string(body)); err != nil {
		return false, fmt.Errorf("apply migration %s: %w", name, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
		return false, fmt.Errorf("record %s: %w", name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit %s: %w", name, err)
	}
	return true, nil
}
