package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-core/logger"
	"restaurant-core/metrics"
	"restaurant-core/models"
)

// Allocator is the only writer of table status. Every mutation holds the
// "tables" lock so a scan and its reservation cannot interleave with another.
type Allocator struct {
	tables TableRegistry
	locks  Locker
	log    *logger.Logger
}

func NewAllocator(tables TableRegistry, locks Locker, log *logger.Logger) *Allocator {
	return &Allocator{tables: tables, locks: locks, log: log}
}

// FindAndReserve picks the lowest-numbered AVAILABLE table seating at least
// capacity guests and marks it RESERVED. Start and duration are recorded in
// the log only: existing bookings on the table are not consulted.
func (a *Allocator) FindAndReserve(ctx context.Context, capacity int, start time.Time, duration time.Duration) (int, error) {
	if capacity <= 0 {
		return 0, &models.ValidationError{Field: "capacity", Reason: "must be positive"}
	}
	unlock, err := a.locks.Lock(ctx, tablesKey)
	if err != nil {
		return 0, err
	}
	defer unlock()

	all, err := a.tables.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list tables: %w", err)
	}
	for _, t := range all {
		if t.Capacity < capacity || t.Status != models.TableAvailable {
			continue
		}
		t.Status = models.TableReserved
		if err := a.tables.Save(ctx, t); err != nil {
			return 0, fmt.Errorf("reserve table %d: %w", t.Number, err)
		}
		metrics.IncTableAllocation("reserved")
		a.log.Info(ctx, "table_reserved", "table reserved",
			"table", t.Number, "capacity", t.Capacity, "guests", capacity,
			"start", start.Format(time.RFC3339), "duration", duration.String())
		return t.Number, nil
	}
	metrics.IncTableAllocation("none")
	return 0, &models.ResourceUnavailableError{
		Resource: "table",
		Reason:   fmt.Sprintf("no available table seats %d guests", capacity),
	}
}

// Occupy moves an AVAILABLE table to OCCUPIED.
func (a *Allocator) Occupy(ctx context.Context, number int) error {
	unlock, err := a.locks.Lock(ctx, tablesKey)
	if err != nil {
		return err
	}
	defer unlock()

	t, err := a.tables.FindByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("load table %d: %w", number, err)
	}
	if t == nil {
		return &models.NotFoundError{Entity: "table", ID: int64(number)}
	}
	if t.Status != models.TableAvailable {
		return &models.InvalidStateTransitionError{
			Entity:     "table",
			ID:         int64(number),
			Transition: "occupy",
			Current:    string(t.Status),
		}
	}
	t.Status = models.TableOccupied
	if err := a.tables.Save(ctx, t); err != nil {
		return fmt.Errorf("occupy table %d: %w", number, err)
	}
	metrics.IncTableAllocation("occupied")
	return nil
}

// Release returns a table to AVAILABLE. A missing or already available table
// is logged and left alone.
func (a *Allocator) Release(ctx context.Context, number int) error {
	unlock, err := a.locks.Lock(ctx, tablesKey)
	if err != nil {
		return err
	}
	defer unlock()
	_, err = a.releaseLocked(ctx, number)
	return err
}

// ReleaseAround frees the table and runs save while still holding the tables
// lock. If save fails the table gets its previous status back, so a failed
// operation never hands its table to somebody else.
func (a *Allocator) ReleaseAround(ctx context.Context, number int, save func() error) error {
	unlock, err := a.locks.Lock(ctx, tablesKey)
	if err != nil {
		return err
	}
	defer unlock()

	prev, err := a.releaseLocked(ctx, number)
	if err != nil {
		return err
	}
	if err := save(); err != nil {
		return errors.Join(err, a.restoreLocked(ctx, prev))
	}
	return nil
}

// releaseLocked returns the table as it was before the change, or nil when
// nothing changed. The caller holds the tables lock.
func (a *Allocator) releaseLocked(ctx context.Context, number int) (*models.Table, error) {
	t, err := a.tables.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("load table %d: %w", number, err)
	}
	if t == nil {
		a.log.Warn(ctx, "table_release_noop", "release of unknown table", "table", number)
		return nil, nil
	}
	if t.Status == models.TableAvailable {
		a.log.Warn(ctx, "table_release_noop", "table already available", "table", number)
		return nil, nil
	}
	prev := t.Clone()
	t.Status = models.TableAvailable
	if err := a.tables.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("release table %d: %w", number, err)
	}
	metrics.IncTableAllocation("released")
	return prev, nil
}

// restoreLocked writes back a snapshot taken by releaseLocked. It only
// overwrites a table that is still AVAILABLE; anything else means the table
// was taken meanwhile and is reported as a conflict.
func (a *Allocator) restoreLocked(ctx context.Context, prev *models.Table) error {
	if prev == nil {
		return nil
	}
	cur, err := a.tables.FindByNumber(ctx, prev.Number)
	if err != nil {
		return fmt.Errorf("load table %d for restore: %w", prev.Number, err)
	}
	if cur != nil && cur.Status != models.TableAvailable {
		a.log.Error(ctx, "table_restore", "table taken before restore", nil,
			"table", prev.Number, "status", string(cur.Status), "want", string(prev.Status))
		return &models.InvalidStateTransitionError{
			Entity:     "table",
			ID:         int64(prev.Number),
			Transition: "restore",
			Current:    string(cur.Status),
		}
	}
	if err := a.tables.Save(ctx, prev); err != nil {
		a.log.Error(ctx, "table_restore", "table restore failed", err,
			"table", prev.Number, "status", string(prev.Status))
		return fmt.Errorf("restore table %d: %w", prev.Number, err)
	}
	a.log.Warn(ctx, "table_restore", "table status restored after failed operation",
		"table", prev.Number, "status", string(prev.Status))
	return nil
}

// Tables returns a snapshot of the seating plan.
func (a *Allocator) Tables(ctx context.Context) ([]*models.Table, error) {
	return a.tables.FindAll(ctx)
}
