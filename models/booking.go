package models

import (
	"fmt"
	"time"
)

// DefaultBookingDuration is how long a booking holds its table for overlap queries.
const DefaultBookingDuration = 2 * time.Hour

type BookingStatus string

const (
	BookingPendingApproval     BookingStatus = "PENDING_APPROVAL"
	BookingConfirmed           BookingStatus = "CONFIRMED"
	BookingRejected            BookingStatus = "REJECTED"
	BookingCancelledByCustomer BookingStatus = "CANCELLED_BY_CUSTOMER"
	BookingCancelledByStaff    BookingStatus = "CANCELLED_BY_STAFF"
)

func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingRejected, BookingCancelledByCustomer, BookingCancelledByStaff:
		return true
	}
	return false
}

// TimeOfDay is a wall-clock time without a date.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay accepts "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, &ValidationError{Field: "bookingTime", Reason: fmt.Sprintf("%q is not HH:MM", s)}
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60
}

type Booking struct {
	ID          int64
	CustomerID  int64
	TableNumber int // 0 = unassigned
	Date        time.Time
	Time        TimeOfDay
	Guests      int
	Status      BookingStatus
	CreatedAt   time.Time
}

// NewBooking builds a PENDING_APPROVAL booking with no table.
func NewBooking(customerID int64, date time.Time, at TimeOfDay, guests int, now time.Time) (*Booking, error) {
	if customerID <= 0 {
		return nil, &ValidationError{Field: "customerID", Reason: "must be positive"}
	}
	if guests <= 0 {
		return nil, &ValidationError{Field: "numberOfGuests", Reason: "must be positive"}
	}
	if date.IsZero() {
		return nil, &ValidationError{Field: "bookingDate", Reason: "required"}
	}
	if !at.Valid() {
		return nil, &ValidationError{Field: "bookingTime", Reason: "out of range"}
	}
	return &Booking{
		CustomerID: customerID,
		Date:       DateOf(date),
		Time:       at,
		Guests:     guests,
		Status:     BookingPendingApproval,
		CreatedAt:  now,
	}, nil
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DateTime combines the booking date and time.
func (b *Booking) DateTime() time.Time {
	y, m, d := b.Date.Date()
	return time.Date(y, m, d, b.Time.Hour, b.Time.Minute, 0, 0, b.Date.Location())
}

// Overlaps reports whether [DateTime, DateTime+dur) intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time, dur time.Duration) bool {
	s := b.DateTime()
	return s.Before(end) && start.Before(s.Add(dur))
}

func (b *Booking) SetID(id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	if b.ID > 0 && b.ID != id {
		return &ValidationError{Field: "id", Reason: "booking id is already assigned"}
	}
	b.ID = id
	return nil
}

func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
