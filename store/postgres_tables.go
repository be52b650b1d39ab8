package store

import (
	"context"
	"errors"
	"fmt"

	"restaurant-core/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGTables struct {
	pool *pgxpool.Pool
}

func NewPGTables(pool *pgxpool.Pool) *PGTables {
	return &PGTables{pool: pool}
}

// Seed inserts plan tables that do not exist yet. Existing rows keep their
// status so a restart does not free occupied tables.
func (s *PGTables) Seed(ctx context.Context, tables []*models.Table) error {
	for _, t := range tables {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO restaurant_tables (number, capacity, status)
			VALUES ($1, $2, $3)
			ON CONFLICT (number) DO NOTHING`,
			t.Number, t.Capacity, string(t.Status),
		); err != nil {
			return fmt.Errorf("seed table %d: %w", t.Number, err)
		}
	}
	return nil
}

func (s *PGTables) Save(ctx context.Context, t *models.Table) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO restaurant_tables (number, capacity, status, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (number) DO UPDATE SET status = EXCLUDED.status, updated_at = now()`,
		t.Number, t.Capacity, string(t.Status),
	)
	return err
}

func (s *PGTables) FindByNumber(ctx context.Context, number int) (*models.Table, error) {
	var t models.Table
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT number, capacity, status FROM restaurant_tables WHERE number = $1`,
		number,
	).Scan(&t.Number, &t.Capacity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	t.Status = models.TableStatus(status)
	return &t, nil
}

func (s *PGTables) FindAll(ctx context.Context) ([]*models.Table, error) {
	rows, err := s.pool.Query(ctx, `SELECT number, capacity, status FROM restaurant_tables ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Table
	for rows.Next() {
		var t models.Table
		var status string
		if err := rows.Scan(&t.Number, &t.Capacity, &status); err != nil {
			return nil, err
		}
		t.Status = models.TableStatus(status)
		out = append(out, &t)
	}
	return out, rows.Err()
}
