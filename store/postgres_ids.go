package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// requireSequence fails early when the id sequences migration has not run.
func requireSequence(ctx context.Context, pool *pgxpool.Pool, seq string) error {
	var ok bool
	if err := pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, seq).Scan(&ok); err != nil {
		return fmt.Errorf("check %s: %w", seq, err)
	}
	if !ok {
		return fmt.Errorf("sequence %s missing, run migrate", seq)
	}
	return nil
}

func nextID(ctx context.Context, tx pgx.Tx, seq string) (int64, error) {
	var id int64
	if err := tx.QueryRow(ctx, `SELECT nextval($1::text::regclass)`, seq).Scan(&id); err != nil {
		return 0, fmt.Errorf("next id from %s: %w", seq, err)
	}
	return id, nil
}

// observeID moves seq past an id that was stored explicitly, so nextval
// never hands it out again.
func observeID(ctx context.Context, db execer, seq string, id int64) error {
	_, err := db.Exec(ctx, `
		SELECT setval($1::text::regclass, $2::bigint) FROM pg_sequences
		WHERE schemaname = current_schema() AND sequencename = $3 AND $2::bigint >= COALESCE(last_value, 0)`,
		seq, id, seq,
	)
	if err != nil {
		return fmt.Errorf("advance %s: %w", seq, err)
	}
	return nil
}
