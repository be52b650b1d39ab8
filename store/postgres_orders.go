package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-core/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PGOrders stores orders, their items and status history in PostgreSQL.
// New ids come from orders_id_seq, so every process sharing the database
// draws from one counter.
type PGOrders struct {
	pool *pgxpool.Pool
}

// NewPGOrders checks that the id sequence exists.
func NewPGOrders(ctx context.Context, pool *pgxpool.Pool) (*PGOrders, error) {
	if err := requireSequence(ctx, pool, "orders_id_seq"); err != nil {
		return nil, err
	}
	return &PGOrders{pool: pool}, nil
}

const orderColumns = `
	o.id, o.kind, o.customer_id, o.status, o.total_price::text, o.ordered_at, o.updated_at,
	o.table_number, o.pickup_time, o.delivery_address, o.estimated_delivery_time, o.assigned_driver_id`

// Save inserts a new order or updates a stored one, and rewrites its items,
// in one transaction. A status change is appended to order_status_history.
// An insert never overwrites: a clashing id fails the save.
func (s *PGOrders) Save(ctx context.Context, o *models.Order) (*models.Order, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}
	c := o.Clone()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	explicit := c.ID != 0
	var prev *string
	if explicit {
		err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, c.ID).Scan(&prev)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("lock order: %w", err)
		}
	} else {
		id, err := nextID(ctx, tx, "orders_id_seq")
		if err != nil {
			return nil, err
		}
		if err := c.SetID(id); err != nil {
			return nil, err
		}
	}

	var table *int
	var pickup, eta *time.Time
	var address *string
	var driver int64
	switch c.Kind {
	case models.KindEatIn:
		n := c.EatIn.TableNumber
		table = &n
	case models.KindTakeaway:
		p := c.Takeaway.PickupTime
		pickup = &p
	case models.KindDelivery:
		a := c.Delivery.Address
		address = &a
		eta = c.Delivery.EstimatedDeliveryTime
		driver = c.Delivery.AssignedDriverID
	}

	if prev == nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO orders (
				id, kind, customer_id, status, total_price, ordered_at, updated_at,
				table_number, pickup_time, delivery_address, estimated_delivery_time, assigned_driver_id
			) VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10, $11, $12)`,
			c.ID, string(c.Kind), c.CustomerID, string(c.Status), c.TotalPrice.String(), c.OrderedAt, c.UpdatedAt,
			table, pickup, address, eta, driver,
		)
		if err != nil {
			return nil, fmt.Errorf("insert order %d: %w", c.ID, err)
		}
		if explicit {
			if err := observeID(ctx, tx, "orders_id_seq", c.ID); err != nil {
				return nil, err
			}
		}
	} else {
		_, err = tx.Exec(ctx, `
			UPDATE orders SET
				status = $2, total_price = $3::numeric, updated_at = $4, table_number = $5,
				pickup_time = $6, delivery_address = $7, estimated_delivery_time = $8, assigned_driver_id = $9
			WHERE id = $1`,
			c.ID, string(c.Status), c.TotalPrice.String(), c.UpdatedAt, table, pickup, address, eta, driver,
		)
		if err != nil {
			return nil, fmt.Errorf("update order %d: %w", c.ID, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("clear items: %w", err)
	}
	batch := &pgx.Batch{}
	for i, it := range c.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, position, item_id, name, category, price, daily_special)
			VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
			c.ID, i, it.ID, it.Name, it.Category, it.Price.String(), it.DailySpecial)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("insert items: %w", err)
	}

	if prev == nil || *prev != string(c.Status) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_status_history (order_id, from_status, to_status)
			VALUES ($1, $2, $3)`,
			c.ID, prev, string(c.Status),
		); err != nil {
			return nil, fmt.Errorf("insert history: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if o.ID == 0 {
		_ = o.SetID(c.ID)
	}
	return c, nil
}

func (s *PGOrders) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	list, err := s.query(ctx, `WHERE o.id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *PGOrders) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PGOrders) FindByCustomer(ctx context.Context, customerID int64) ([]*models.Order, error) {
	return s.query(ctx, `WHERE o.customer_id = $1`, customerID)
}

func (s *PGOrders) FindByStatuses(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.query(ctx, `WHERE o.status = ANY($1)`, names)
}

func (s *PGOrders) FindOutstanding(ctx context.Context) ([]*models.Order, error) {
	names := make([]string, len(models.TerminalOrderStatuses))
	for i, st := range models.TerminalOrderStatuses {
		names[i] = string(st)
	}
	return s.query(ctx, `WHERE o.status <> ALL($1)`, names)
}

// query loads orders matching where plus their items, ordered by id.
func (s *PGOrders) query(ctx context.Context, where string, args ...any) ([]*models.Order, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+orderColumns+` FROM orders o `+where+` ORDER BY o.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Order
	byID := make(map[int64]*models.Order)
	for rows.Next() {
		var (
			o       models.Order
			kind    string
			status  string
			total   string
			table   *int
			pickup  *time.Time
			address *string
			eta     *time.Time
			driver  int64
		)
		if err := rows.Scan(&o.ID, &kind, &o.CustomerID, &status, &total, &o.OrderedAt, &o.UpdatedAt,
			&table, &pickup, &address, &eta, &driver); err != nil {
			return nil, err
		}
		o.Kind = models.OrderKind(kind)
		o.Status = models.OrderStatus(status)
		if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("order %d total: %w", o.ID, err)
		}
		switch o.Kind {
		case models.KindEatIn:
			if table != nil {
				o.EatIn = &models.EatInDetails{TableNumber: *table}
			}
		case models.KindTakeaway:
			if pickup != nil {
				o.Takeaway = &models.TakeawayDetails{PickupTime: *pickup}
			}
		case models.KindDelivery:
			o.Delivery = &models.DeliveryDetails{EstimatedDeliveryTime: eta, AssignedDriverID: driver}
			if address != nil {
				o.Delivery.Address = *address
			}
		}
		out = append(out, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(out))
	for _, o := range out {
		ids = append(ids, o.ID)
	}
	itemRows, err := s.pool.Query(ctx, `
		SELECT order_id, item_id, name, category, price::text, daily_special
		FROM order_items WHERE order_id = ANY($1)
		ORDER BY order_id, position`, ids)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var orderID int64
		var it models.Item
		var price string
		if err := itemRows.Scan(&orderID, &it.ID, &it.Name, &it.Category, &price, &it.DailySpecial); err != nil {
			return nil, err
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("order %d item price: %w", orderID, err)
		}
		if o := byID[orderID]; o != nil {
			o.Items = append(o.Items, it)
		}
	}
	return out, itemRows.Err()
}
