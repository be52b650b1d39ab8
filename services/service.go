package services

import (
	"context"
	"errors"
	"time"

	"restaurant-core/logger"
	"restaurant-core/metrics"
	"restaurant-core/models"
)

type Option func(*base)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *base) { b.now = now }
}

// WithSink sets where committed events go. The default drops them.
func WithSink(sink NotificationSink) Option {
	return func(b *base) { b.sink = sink }
}

// WithLocker replaces the in-process per-entity locks.
func WithLocker(l Locker) Option {
	return func(b *base) { b.locks = l }
}

// base carries what both lifecycle services share.
type base struct {
	perms *PermissionTable
	alloc *Allocator
	locks Locker
	sink  NotificationSink
	log   *logger.Logger
	now   func() time.Time
}

func newBase(perms *PermissionTable, alloc *Allocator, log *logger.Logger, opts []Option) base {
	b := base{
		perms: perms,
		alloc: alloc,
		locks: NewKeyedLocker(DefaultLockTimeout),
		sink:  nopSink{},
		log:   log,
		now:   time.Now,
	}
	for _, o := range opts {
		o(&b)
	}
	return b
}

// notify delivers n after the change is committed. Failures are logged only.
func (b *base) notify(ctx context.Context, n Notification) {
	if err := Dispatch(ctx, b.sink, n); err != nil {
		b.log.Warn(ctx, "notification_failed", "notification not delivered",
			"kind", string(n.Kind), "entity", n.Entity, "entity_id", n.EntityID, "err", err.Error())
	}
}

// record counts a transition attempt by outcome.
func record(entity, transition string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidTransition):
		result = "invalid"
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrAuthenticationRequired):
		result = "denied"
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrValidation):
		result = "rejected"
	default:
		result = "error"
	}
	metrics.IncTransition(entity, transition, result)
}

func validID(field string, id int64) error {
	if id <= 0 {
		return &models.ValidationError{Field: field, Reason: "must be positive"}
	}
	return nil
}
