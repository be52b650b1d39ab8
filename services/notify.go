package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-core/logger"
	"restaurant-core/metrics"

	"github.com/google/uuid"
)

type NotificationKind string

const (
	NotifyConfirmation   NotificationKind = "confirmation"
	NotifyStatusUpdate   NotificationKind = "status_update"
	NotifyCancellation   NotificationKind = "cancellation"
	NotifyPendingBooking NotificationKind = "pending_booking"
	NotifyDriverAssigned NotificationKind = "driver_assigned"
)

const (
	EntityOrder   = "order"
	EntityBooking = "booking"
)

// Notification describes one committed lifecycle event.
type Notification struct {
	ID          uuid.UUID        `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Entity      string           `json:"entity"`
	EntityID    int64            `json:"entity_id"`
	CustomerID  int64            `json:"customer_id"`
	DriverID    int64            `json:"driver_id,omitempty"`
	TableNumber int              `json:"table_number,omitempty"`
	OldStatus   string           `json:"old_status,omitempty"`
	NewStatus   string           `json:"new_status"`
	ActorID     int64            `json:"actor_id"`
	At          time.Time        `json:"at"`
}

// NotificationSink receives lifecycle events after they are persisted.
// Errors are logged by the caller and never undo the operation.
type NotificationSink interface {
	SendConfirmation(ctx context.Context, n Notification) error
	SendStatusUpdate(ctx context.Context, n Notification) error
	SendCancellation(ctx context.Context, n Notification) error
	SendPendingBookingAlert(ctx context.Context, n Notification) error
	SendDriverAssigned(ctx context.Context, n Notification) error
}

// SinkFunc adapts one delivery function to every NotificationSink method.
type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) SendConfirmation(ctx context.Context, n Notification) error        { return f(ctx, n) }
func (f SinkFunc) SendStatusUpdate(ctx context.Context, n Notification) error        { return f(ctx, n) }
func (f SinkFunc) SendCancellation(ctx context.Context, n Notification) error        { return f(ctx, n) }
func (f SinkFunc) SendPendingBookingAlert(ctx context.Context, n Notification) error { return f(ctx, n) }
func (f SinkFunc) SendDriverAssigned(ctx context.Context, n Notification) error      { return f(ctx, n) }

// Dispatch routes n to the sink method matching its kind.
func Dispatch(ctx context.Context, sink NotificationSink, n Notification) error {
	switch n.Kind {
	case NotifyConfirmation:
		return sink.SendConfirmation(ctx, n)
	case NotifyStatusUpdate:
		return sink.SendStatusUpdate(ctx, n)
	case NotifyCancellation:
		return sink.SendCancellation(ctx, n)
	case NotifyPendingBooking:
		return sink.SendPendingBookingAlert(ctx, n)
	case NotifyDriverAssigned:
		return sink.SendDriverAssigned(ctx, n)
	}
	return fmt.Errorf("unknown notification kind %q", n.Kind)
}

type namedSink struct {
	name string
	sink NotificationSink
}

// MultiSink fans a notification out to every registered sink.
type MultiSink struct {
	sinks []namedSink
}

func NewMultiSink() *MultiSink { return &MultiSink{} }

func (m *MultiSink) Add(name string, sink NotificationSink) *MultiSink {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	return m
}

func (m *MultiSink) Len() int { return len(m.sinks) }

func (m *MultiSink) fanOut(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m.sinks {
		if err := Dispatch(ctx, s.sink, n); err != nil {
			metrics.IncNotificationFailure(s.name)
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) SendConfirmation(ctx context.Context, n Notification) error {
	return m.fanOut(ctx, n)
}

func (m *MultiSink) SendStatusUpdate(ctx context.Context, n Notification) error {
	return m.fanOut(ctx, n)
}

func (m *MultiSink) SendCancellation(ctx context.Context, n Notification) error {
	return m.fanOut(ctx, n)
}

func (m *MultiSink) SendPendingBookingAlert(ctx context.Context, n Notification) error {
	return m.fanOut(ctx, n)
}

func (m *MultiSink) SendDriverAssigned(ctx context.Context, n Notification) error {
	return m.fanOut(ctx, n)
}

// LogSink writes every notification to the structured log.
func LogSink(log *logger.Logger) NotificationSink {
	return SinkFunc(func(ctx context.Context, n Notification) error {
		log.Info(ctx, "notification", RenderNotification(n),
			"notification_id", n.ID.String(),
			"kind", string(n.Kind),
			"entity", n.Entity,
			"entity_id", n.EntityID,
			"new_status", n.NewStatus,
		)
		return nil
	})
}

type nopSink struct{}

func (nopSink) SendConfirmation(context.Context, Notification) error        { return nil }
func (nopSink) SendStatusUpdate(context.Context, Notification) error        { return nil }
func (nopSink) SendCancellation(context.Context, Notification) error        { return nil }
func (nopSink) SendPendingBookingAlert(context.Context, Notification) error { return nil }
func (nopSink) SendDriverAssigned(context.Context, Notification) error      { return nil }
