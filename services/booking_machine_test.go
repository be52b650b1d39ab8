package services

import (
	"errors"
	"testing"

	"restaurant-core/models"
)

func bookingIn(status models.BookingStatus) *models.Booking {
	return &models.Booking{ID: 7, CustomerID: 5, Guests: 2, Status: status}
}

func TestBookingTransitions(t *testing.T) {
	all := []models.BookingStatus{
		models.BookingPendingApproval, models.BookingConfirmed, models.BookingRejected,
		models.BookingCancelledByCustomer, models.BookingCancelledByStaff,
	}
	legal := map[BookingTransition]map[models.BookingStatus]bool{
		BookingApprove: {models.BookingPendingApproval: true},
		BookingReject:  {models.BookingPendingApproval: true},
		BookingCancel:  {models.BookingPendingApproval: true, models.BookingConfirmed: true},
	}
	for tr, ok := range legal {
		for _, s := range all {
			err := CheckBookingTransition(bookingIn(s), tr)
			if ok[s] && err != nil {
				t.Errorf("%s from %s: unexpected %v", tr, s, err)
			}
			if !ok[s] && !errors.Is(err, models.ErrInvalidTransition) {
				t.Errorf("%s from %s: err = %v, want invalid transition", tr, s, err)
			}
		}
	}
}

func TestApproveWithTable(t *testing.T) {
	b := bookingIn(models.BookingPendingApproval)
	if err := ApproveWithTable(b, 0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("table 0: err = %v", err)
	}
	if err := ApproveWithTable(b, 4); err != nil {
		t.Fatal(err)
	}
	if b.Status != models.BookingConfirmed || b.TableNumber != 4 {
		t.Errorf("after approve: %s table %d", b.Status, b.TableNumber)
	}
	if err := ApproveWithTable(b, 4); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("second approve: err = %v", err)
	}
}

func TestCancelByActor(t *testing.T) {
	tests := []struct {
		from  models.BookingStatus
		actor int64
		want  models.BookingStatus
	}{
		{models.BookingPendingApproval, 5, models.BookingCancelledByCustomer},
		{models.BookingConfirmed, 5, models.BookingCancelledByCustomer},
		{models.BookingPendingApproval, 99, models.BookingCancelledByStaff},
		{models.BookingConfirmed, 99, models.BookingCancelledByStaff},
	}
	for _, tt := range tests {
		b := bookingIn(tt.from)
		if err := CancelBy(b, tt.actor); err != nil {
			t.Errorf("cancel from %s by %d: %v", tt.from, tt.actor, err)
			continue
		}
		if b.Status != tt.want {
			t.Errorf("cancel from %s by %d: status = %s, want %s", tt.from, tt.actor, b.Status, tt.want)
		}
	}
	b := bookingIn(models.BookingRejected)
	if err := CancelBy(b, 5); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("cancel rejected booking: err = %v", err)
	}
}
