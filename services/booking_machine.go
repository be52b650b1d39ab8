package services

import "restaurant-core/models"

type BookingTransition string

const (
	BookingApprove BookingTransition = "approve"
	BookingReject  BookingTransition = "reject"
	BookingCancel  BookingTransition = "cancel"
)

var bookingSources = map[BookingTransition][]models.BookingStatus{
	BookingApprove: {models.BookingPendingApproval},
	BookingReject:  {models.BookingPendingApproval},
	BookingCancel:  {models.BookingPendingApproval, models.BookingConfirmed},
}

func CheckBookingTransition(b *models.Booking, t BookingTransition) error {
	for _, s := range bookingSources[t] {
		if b.Status == s {
			return nil
		}
	}
	return &models.InvalidStateTransitionError{
		Entity:     EntityBooking,
		ID:         b.ID,
		Transition: string(t),
		Current:    string(b.Status),
	}
}

// ApproveWithTable confirms b on the given table.
func ApproveWithTable(b *models.Booking, table int) error {
	if err := CheckBookingTransition(b, BookingApprove); err != nil {
		return err
	}
	if table <= 0 {
		return &models.ValidationError{Field: "tableNumber", Reason: "must be positive"}
	}
	b.Status = models.BookingConfirmed
	b.TableNumber = table
	return nil
}

func RejectPending(b *models.Booking) error {
	if err := CheckBookingTransition(b, BookingReject); err != nil {
		return err
	}
	b.Status = models.BookingRejected
	return nil
}

// CancelBy cancels b on behalf of actorID. The outcome depends on who acts:
// the booking's customer or anyone else (staff).
func CancelBy(b *models.Booking, actorID int64) error {
	if err := CheckBookingTransition(b, BookingCancel); err != nil {
		return err
	}
	if actorID == b.CustomerID {
		b.Status = models.BookingCancelledByCustomer
	} else {
		b.Status = models.BookingCancelledByStaff
	}
	return nil
}
