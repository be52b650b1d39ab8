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

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// PGBookings keeps booking dates as wall-clock DATE and TIME columns. New
// ids come from bookings_id_seq.
type PGBookings struct {
	pool     *pgxpool.Pool
	duration time.Duration
}

func NewPGBookings(ctx context.Context, pool *pgxpool.Pool, duration time.Duration) (*PGBookings, error) {
	if duration <= 0 {
		duration = models.DefaultBookingDuration
	}
	if err := requireSequence(ctx, pool, "bookings_id_seq"); err != nil {
		return nil, err
	}
	return &PGBookings{pool: pool, duration: duration}, nil
}

const bookingColumns = `
	id, customer_id, table_number, to_char(booking_date, 'YYYY-MM-DD'),
	to_char(booking_time, 'HH24:MI'), guests, status, created_at`

func (s *PGBookings) Save(ctx context.Context, b *models.Booking) (*models.Booking, error) {
	c := b.Clone()
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	explicit := c.ID != 0
	var prev *string
	if explicit {
		err = tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, c.ID).Scan(&prev)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lock booking: %w", err)
		}
	} else {
		id, err := nextID(ctx, tx, "bookings_id_seq")
		if err != nil {
			return nil, err
		}
		if err := c.SetID(id); err != nil {
			return nil, err
		}
	}

	if prev == nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO bookings (id, customer_id, table_number, booking_date, booking_time, guests, status, created_at)
			VALUES ($1, $2, $3, $4::date, $5::time, $6, $7, $8)`,
			c.ID, c.CustomerID, c.TableNumber, c.Date.Format(dateLayout), c.Time.String(), c.Guests, string(c.Status), c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert booking %d: %w", c.ID, err)
		}
		if explicit {
			if err := observeID(ctx, tx, "bookings_id_seq", c.ID); err != nil {
				return nil, err
			}
		}
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE bookings SET
				table_number = $2, booking_date = $3::date, booking_time = $4::time, guests = $5, status = $6
			WHERE id = $1`,
			c.ID, c.TableNumber, c.Date.Format(dateLayout), c.Time.String(), c.Guests, string(c.Status),
		)
		if err != nil {
			return nil, fmt.Errorf("update booking %d: %w", c.ID, err)
		}
	}
	if prev == nil || *prev != string(c.Status) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO booking_status_history (booking_id, from_status, to_status)
			VALUES ($1, $2, $3)`,
			c.ID, prev, string(c.Status),
		); err != nil {
			return nil, fmt.Errorf("insert history: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if b.ID == 0 {
		_ = b.SetID(c.ID)
	}
	return c, nil
}

func (s *PGBookings) FindByID(ctx context.Context, id int64) (*models.Booking, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (s *PGBookings) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGBookings) FindByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error) {
	return s.query(ctx, `WHERE customer_id = $1`, customerID)
}

func (s *PGBookings) FindByDate(ctx context.Context, date time.Time) ([]*models.Booking, error) {
	return s.query(ctx, `WHERE booking_date = $1::date`, date.Format(dateLayout))
}

// FindByTableAndRange matches every booking on the table whatever its status.
func (s *PGBookings) FindByTableAndRange(ctx context.Context, table int, start, end time.Time) ([]*models.Booking, error) {
	return s.query(ctx, `
		WHERE table_number = $1
		  AND (booking_date + booking_time) < $3::timestamp
		  AND (booking_date + booking_time) + make_interval(secs => $4) > $2::timestamp`,
		table, start.Format(timestampLayout), end.Format(timestampLayout), s.duration.Seconds())
}

func (s *PGBookings) query(ctx context.Context, where string, args ...any) ([]*models.Booking, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+bookingColumns+` FROM bookings `+where+
		` ORDER BY booking_date, booking_time, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (*models.Booking, error) {
	var b models.Booking
	var date, at, status string
	if err := row.Scan(&b.ID, &b.CustomerID, &b.TableNumber, &date, &at, &b.Guests, &status, &b.CreatedAt); err != nil {
		return nil, err
	}
	d, err := time.ParseInLocation(dateLayout, date, time.Local)
	if err != nil {
		return nil, fmt.Errorf("booking %d date: %w", b.ID, err)
	}
	tod, err := models.ParseTimeOfDay(at)
	if err != nil {
		return nil, fmt.Errorf("booking %d time: %w", b.ID, err)
	}
	b.Date = d
	b.Time = tod
	b.Status = models.BookingStatus(status)
	return &b, nil
}
