package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-core/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGUsers implements the user directory and the staff credential store.
type PGUsers struct {
	pool *pgxpool.Pool
}

func NewPGUsers(ctx context.Context, pool *pgxpool.Pool) (*PGUsers, error) {
	if err := requireSequence(ctx, pool, "users_id_seq"); err != nil {
		return nil, err
	}
	return &PGUsers{pool: pool}, nil
}

// Save upserts a user with a known id. A user without one gets the next id
// from users_id_seq.
func (s *PGUsers) Save(ctx context.Context, u *models.User) (*models.User, error) {
	if !u.Role.Valid() {
		return nil, &models.ValidationError{Field: "role", Reason: "unknown role " + string(u.Role)}
	}
	c := *u
	if c.ID == 0 {
		err := s.pool.QueryRow(ctx, `
			INSERT INTO users (id, name, role, chat_id) VALUES (nextval('users_id_seq'), $1, $2, $3)
			RETURNING id`,
			c.Name, string(c.Role), c.ChatID,
		).Scan(&c.ID)
		if err != nil {
			return nil, fmt.Errorf("insert user: %w", err)
		}
		return &c, nil
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, role, chat_id) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, role = EXCLUDED.role, chat_id = EXCLUDED.chat_id`,
		c.ID, c.Name, string(c.Role), c.ChatID,
	)
	if err != nil {
		return nil, fmt.Errorf("save user %d: %w", c.ID, err)
	}
	if err := observeID(ctx, s.pool, "users_id_seq", c.ID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PGUsers) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	var u models.User
	var role string
	err := s.pool.QueryRow(ctx, `SELECT id, name, role, chat_id FROM users `+where, arg).
		Scan(&u.ID, &u.Name, &role, &u.ChatID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

func (s *PGUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	return s.findOne(ctx, `WHERE id = $1`, id)
}

func (s *PGUsers) FindByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	if chatID == 0 {
		return nil, nil
	}
	return s.findOne(ctx, `WHERE chat_id = $1 ORDER BY id LIMIT 1`, chatID)
}

func (s *PGUsers) FindByRole(ctx context.Context, role models.Role) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, role, chat_id FROM users WHERE role = $1 ORDER BY id`, string(role))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		var u models.User
		var r string
		if err := rows.Scan(&u.ID, &u.Name, &r, &u.ChatID); err != nil {
			return nil, err
		}
		u.Role = models.Role(r)
		out = append(out, &u)
	}
	return out, rows.Err()
}

func (s *PGUsers) FindCredential(ctx context.Context, userID int64) (*models.Credential, error) {
	c := models.Credential{UserID: userID}
	var cooldown *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT password_hash, is_active, fail_count, cooldown_until
		FROM user_credentials WHERE user_id = $1`,
		userID,
	).Scan(&c.PasswordHash, &c.Active, &c.FailCount, &cooldown)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if cooldown != nil {
		c.CooldownUntil = *cooldown
	}
	return &c, nil
}

func (s *PGUsers) SaveCredential(ctx context.Context, c *models.Credential) error {
	var cooldown *time.Time
	if !c.CooldownUntil.IsZero() {
		t := c.CooldownUntil
		cooldown = &t
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO user_credentials (user_id, password_hash, is_active, fail_count, cooldown_until, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			is_active = EXCLUDED.is_active,
			fail_count = EXCLUDED.fail_count,
			cooldown_until = EXCLUDED.cooldown_until,
			updated_at = now()`,
		c.UserID, c.PasswordHash, c.Active, c.FailCount, cooldown,
	)
	return err
}
