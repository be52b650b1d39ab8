package services

import (
	"context"
	"time"

	"restaurant-core/models"
)

// Lookups return (nil, nil) when the record does not exist. Reads return
// copies the caller may mutate freely.

type OrderStore interface {
	// Save assigns an id to new orders and upserts atomically.
	Save(ctx context.Context, o *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	Delete(ctx context.Context, id int64) (bool, error)
	FindByCustomer(ctx context.Context, customerID int64) ([]*models.Order, error)
	FindByStatuses(ctx context.Context, statuses ...models.OrderStatus) ([]*models.Order, error)
	// FindOutstanding returns orders whose status is not terminal.
	FindOutstanding(ctx context.Context) ([]*models.Order, error)
}

type BookingStore interface {
	Save(ctx context.Context, b *models.Booking) (*models.Booking, error)
	FindByID(ctx context.Context, id int64) (*models.Booking, error)
	Delete(ctx context.Context, id int64) (bool, error)
	FindByCustomer(ctx context.Context, customerID int64) ([]*models.Booking, error)
	FindByDate(ctx context.Context, date time.Time) ([]*models.Booking, error)
	// FindByTableAndRange returns bookings on table whose slot overlaps [start, end).
	FindByTableAndRange(ctx context.Context, table int, start, end time.Time) ([]*models.Booking, error)
}

type TableRegistry interface {
	Save(ctx context.Context, t *models.Table) error
	FindByNumber(ctx context.Context, number int) (*models.Table, error)
	// FindAll is ordered by table number.
	FindAll(ctx context.Context) ([]*models.Table, error)
}

type UserDirectory interface {
	Save(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*models.User, error)
	FindByRole(ctx context.Context, role models.Role) ([]*models.User, error)
}
