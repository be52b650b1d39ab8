package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-core/logger"
	"restaurant-core/models"

	"github.com/google/uuid"
)

type BookingRequest struct {
	CustomerID int64 // defaults to the acting user
	Date       time.Time
	Time       models.TimeOfDay
	Guests     int
}

type BookingService struct {
	base
	bookings BookingStore
	duration time.Duration
}

func NewBookingService(bookings BookingStore, alloc *Allocator, perms *PermissionTable, log *logger.Logger, duration time.Duration, opts ...Option) *BookingService {
	if duration <= 0 {
		duration = models.DefaultBookingDuration
	}
	return &BookingService{base: newBase(perms, alloc, log, opts), bookings: bookings, duration: duration}
}

// RequestBooking stores a PENDING_APPROVAL booking without a table and alerts staff.
func (s *BookingService) RequestBooking(ctx context.Context, actor *models.User, req BookingRequest) (b *models.Booking, err error) {
	defer func() { record(EntityBooking, "request", err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if req.CustomerID == 0 {
		req.CustomerID = actor.ID
	}
	if err := s.perms.requireOnBehalf(actor, req.CustomerID, models.PermRequestBooking); err != nil {
		return nil, err
	}
	now := s.now()
	b, err = models.NewBooking(req.CustomerID, req.Date, req.Time, req.Guests, now)
	if err != nil {
		return nil, err
	}
	if b.DateTime().Before(now) {
		return nil, &models.ValidationError{Field: "bookingDate", Reason: "must not be in the past"}
	}
	saved, err := s.bookings.Save(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save booking: %w", err)
	}
	s.log.Info(ctx, "booking_requested", "booking requested",
		"booking_id", saved.ID, "customer_id", saved.CustomerID, "guests", saved.Guests,
		"at", saved.DateTime().Format(time.RFC3339))
	s.notify(ctx, s.bookingNotification(NotifyPendingBooking, saved, "", actor))
	return saved, nil
}

// ApproveBooking reserves the first table that fits. When none fits the
// booking is rejected instead and no error is returned.
func (s *BookingService) ApproveBooking(ctx context.Context, actor *models.User, id int64) (b *models.Booking, err error) {
	defer func() { record(EntityBooking, string(BookingApprove), err) }()
	b, unlock, err := s.open(ctx, actor, id, models.PermApproveBooking)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if err := CheckBookingTransition(b, BookingApprove); err != nil {
		return nil, err
	}

	table, err := s.alloc.FindAndReserve(ctx, b.Guests, b.DateTime(), s.duration)
	if errors.Is(err, models.ErrResourceUnavailable) {
		return s.rejectNoTable(ctx, actor, b)
	}
	if err != nil {
		return nil, err
	}
	if err := ApproveWithTable(b, table); err != nil {
		s.undoReserve(ctx, table)
		return nil, err
	}
	saved, err := s.bookings.Save(ctx, b)
	if err != nil {
		s.undoReserve(ctx, table)
		return nil, fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	s.log.Info(ctx, "booking_confirmed", "booking confirmed",
		"booking_id", saved.ID, "table", saved.TableNumber, "actor_id", actor.ID)
	s.notify(ctx, s.bookingNotification(NotifyConfirmation, saved, models.BookingPendingApproval, actor))
	return saved, nil
}

func (s *BookingService) rejectNoTable(ctx context.Context, actor *models.User, b *models.Booking) (*models.Booking, error) {
	if err := RejectPending(b); err != nil {
		return nil, err
	}
	saved, err := s.bookings.Save(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	s.log.Info(ctx, "booking_rejected_no_table", "no table fits, booking rejected",
		"booking_id", saved.ID, "guests", saved.Guests)
	s.notify(ctx, s.bookingNotification(NotifyStatusUpdate, saved, models.BookingPendingApproval, actor))
	return saved, nil
}

func (s *BookingService) undoReserve(ctx context.Context, table int) {
	if err := s.alloc.Release(ctx, table); err != nil {
		s.log.Error(ctx, "table_compensation", "could not free reserved table", err, "table", table)
	}
}

func (s *BookingService) RejectBooking(ctx context.Context, actor *models.User, id int64) (b *models.Booking, err error) {
	defer func() { record(EntityBooking, string(BookingReject), err) }()
	b, unlock, err := s.open(ctx, actor, id, models.PermRejectBooking)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if err := RejectPending(b); err != nil {
		return nil, err
	}
	saved, err := s.bookings.Save(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("save booking %d: %w", b.ID, err)
	}
	s.log.Info(ctx, "booking_rejected", "booking rejected", "booking_id", saved.ID, "actor_id", actor.ID)
	s.notify(ctx, s.bookingNotification(NotifyStatusUpdate, saved, models.BookingPendingApproval, actor))
	return saved, nil
}

// CancelBooking records who cancelled and frees the table of a confirmed booking.
func (s *BookingService) CancelBooking(ctx context.Context, actor *models.User, id int64) (b *models.Booking, err error) {
	defer func() { record(EntityBooking, string(BookingCancel), err) }()
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.requireEither(actor, models.PermCancelOwnBooking, models.PermCancelAnyBooking); err != nil {
		return nil, err
	}
	if err := validID("bookingID", id); err != nil {
		return nil, err
	}
	unlock, err := s.locks.Lock(ctx, bookingKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()
	b, err = s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnOrAny(actor, b.CustomerID, models.PermCancelOwnBooking, models.PermCancelAnyBooking); err != nil {
		return nil, err
	}

	old := b.Status
	if err := CancelBy(b, actor.ID); err != nil {
		return nil, err
	}
	var saved *models.Booking
	save := func() (err error) {
		if saved, err = s.bookings.Save(ctx, b); err != nil {
			return fmt.Errorf("save booking %d: %w", b.ID, err)
		}
		return nil
	}
	if old == models.BookingConfirmed && b.TableNumber > 0 {
		err = s.alloc.ReleaseAround(ctx, b.TableNumber, save)
	} else {
		err = save()
	}
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "booking_cancelled", "booking cancelled",
		"booking_id", saved.ID, "status", string(saved.Status), "actor_id", actor.ID)
	s.notify(ctx, s.bookingNotification(NotifyCancellation, saved, old, actor))
	return saved, nil
}

// open runs the common prefix of staff operations and returns the locked booking.
func (s *BookingService) open(ctx context.Context, actor *models.User, id int64, perm models.Permission) (*models.Booking, func(), error) {
	if err := authenticate(actor); err != nil {
		return nil, nil, err
	}
	if err := s.perms.require(actor, perm); err != nil {
		return nil, nil, err
	}
	if err := validID("bookingID", id); err != nil {
		return nil, nil, err
	}
	unlock, err := s.locks.Lock(ctx, bookingKey(id))
	if err != nil {
		return nil, nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return b, unlock, nil
}

func (s *BookingService) load(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	if b == nil {
		return nil, &models.NotFoundError{Entity: EntityBooking, ID: id}
	}
	return b, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor *models.User, id int64) (*models.Booking, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := validID("bookingID", id); err != nil {
		return nil, err
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnerOrView(actor, b.CustomerID, models.PermViewBookings); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BookingService) ListCustomerBookings(ctx context.Context, actor *models.User, customerID int64) ([]*models.Booking, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.requireOwnerOrView(actor, customerID, models.PermViewBookings); err != nil {
		return nil, err
	}
	return s.bookings.FindByCustomer(ctx, customerID)
}

func (s *BookingService) ListByDate(ctx context.Context, actor *models.User, date time.Time) ([]*models.Booking, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, models.PermViewBookings); err != nil {
		return nil, err
	}
	return s.bookings.FindByDate(ctx, date)
}

// TableSchedule lists bookings overlapping [start, end) on one table. It is
// a report; allocation does not consult it.
func (s *BookingService) TableSchedule(ctx context.Context, actor *models.User, table int, start, end time.Time) ([]*models.Booking, error) {
	if err := authenticate(actor); err != nil {
		return nil, err
	}
	if err := s.perms.require(actor, models.PermViewBookings); err != nil {
		return nil, err
	}
	if table <= 0 {
		return nil, &models.ValidationError{Field: "tableNumber", Reason: "must be positive"}
	}
	if !end.After(start) {
		return nil, &models.ValidationError{Field: "range", Reason: "end must be after start"}
	}
	return s.bookings.FindByTableAndRange(ctx, table, start, end)
}

func (s *BookingService) bookingNotification(kind NotificationKind, b *models.Booking, old models.BookingStatus, actor *models.User) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        kind,
		Entity:      EntityBooking,
		EntityID:    b.ID,
		CustomerID:  b.CustomerID,
		TableNumber: b.TableNumber,
		OldStatus:   string(old),
		NewStatus:   string(b.Status),
		ActorID:     actor.ID,
		At:          s.now(),
	}
}
