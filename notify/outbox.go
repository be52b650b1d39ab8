package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"restaurant-core/services"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DedupWindow suppresses a repeat of the same event on the same entity.
const DedupWindow = 30 * time.Second

// Outbox records every notification in outbound_messages. It is the audit
// trail of what customers and staff were told.
type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// SentWithin reports whether the same kind and status was already recorded
// for the entity inside the dedup window.
func (o *Outbox) SentWithin(ctx context.Context, n services.Notification) (bool, error) {
	var count int
	err := o.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM outbound_messages
		WHERE entity = $1 AND entity_id = $2 AND kind = $3 AND status = $4
		  AND created_at > now() - make_interval(secs => $5)`,
		n.Entity, n.EntityID, string(n.Kind), n.NewStatus, DedupWindow.Seconds(),
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (o *Outbox) save(ctx context.Context, n services.Notification) error {
	dup, err := o.SentWithin(ctx, n)
	if err != nil {
		return fmt.Errorf("outbox dedup: %w", err)
	}
	if dup {
		return nil
	}
	meta, err := json.Marshal(map[string]any{
		"customer_id":  n.CustomerID,
		"driver_id":    n.DriverID,
		"table_number": n.TableNumber,
		"old_status":   n.OldStatus,
		"actor_id":     n.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	_, err = o.pool.Exec(ctx, `
		INSERT INTO outbound_messages (notification_id, kind, entity, entity_id, status, content, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
		ON CONFLICT (notification_id) DO NOTHING`,
		n.ID.String(), string(n.Kind), n.Entity, n.EntityID, n.NewStatus, services.RenderNotification(n), string(meta),
	)
	return err
}

func (o *Outbox) SendConfirmation(ctx context.Context, n services.Notification) error {
	return o.save(ctx, n)
}

func (o *Outbox) SendStatusUpdate(ctx context.Context, n services.Notification) error {
	return o.save(ctx, n)
}

func (o *Outbox) SendCancellation(ctx context.Context, n services.Notification) error {
	return o.save(ctx, n)
}

func (o *Outbox) SendPendingBookingAlert(ctx context.Context, n services.Notification) error {
	return o.save(ctx, n)
}

func (o *Outbox) SendDriverAssigned(ctx context.Context, n services.Notification) error {
	return o.save(ctx, n)
}
