package services

import (
	"errors"
	"testing"
	"time"

	"restaurant-core/models"

	"github.com/shopspring/decimal"
)

var (
	t0 = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func testItems(t *testing.T) []models.Item {
	t.Helper()
	it, err := models.NewItem("Pasta", models.CategoryMain, decimal.NewFromInt(12), false)
	if err != nil {
		t.Fatal(err)
	}
	return []models.Item{it}
}

func orderIn(t *testing.T, kind models.OrderKind, status models.OrderStatus) *models.Order {
	t.Helper()
	var (
		o   *models.Order
		err error
	)
	switch kind {
	case models.KindEatIn:
		o, err = models.NewEatInOrder(5, 3, testItems(t), t0)
	case models.KindTakeaway:
		o, err = models.NewTakeawayOrder(5, t0.Add(time.Hour), testItems(t), t0)
	case models.KindDelivery:
		o, err = models.NewDeliveryOrder(5, "1 Main St", nil, testItems(t), t0)
	}
	if err != nil {
		t.Fatal(err)
	}
	o.ID = 1
	o.Status = status
	return o
}

func TestApplyOrderTransition(t *testing.T) {
	tests := []struct {
		kind    models.OrderKind
		from    models.OrderStatus
		tr      OrderTransition
		want    models.OrderStatus
		wantErr bool
	}{
		{models.KindEatIn, models.OrderPendingConfirmation, OrderConfirm, models.OrderConfirmed, false},
		{models.KindEatIn, models.OrderPendingConfirmation, OrderReject, models.OrderRejected, false},
		{models.KindEatIn, models.OrderConfirmed, OrderStartPreparation, models.OrderPreparing, false},
		{models.KindEatIn, models.OrderPreparing, OrderMarkReady, models.OrderReady, false},
		{models.KindEatIn, models.OrderReady, OrderMarkServed, models.OrderCompleted, false},
		{models.KindTakeaway, models.OrderReady, OrderMarkCollected, models.OrderCompleted, false},
		{models.KindDelivery, models.OrderConfirmed, OrderMarkReadyForDispatch, models.OrderReadyForDispatch, false},
		{models.KindDelivery, models.OrderReady, OrderMarkReadyForDispatch, models.OrderReadyForDispatch, false},
		{models.KindDelivery, models.OrderReadyForDispatch, OrderMarkOutForDelivery, models.OrderOutForDelivery, false},
		{models.KindDelivery, models.OrderReady, OrderMarkOutForDelivery, models.OrderOutForDelivery, false},
		{models.KindDelivery, models.OrderOutForDelivery, OrderMarkDelivered, models.OrderCompleted, false},
		{models.KindTakeaway, models.OrderPendingConfirmation, OrderCancel, models.OrderCancelled, false},
		{models.KindDelivery, models.OrderConfirmed, OrderCancel, models.OrderCancelled, false},

		{models.KindEatIn, models.OrderPendingConfirmation, OrderStartPreparation, "", true},
		{models.KindEatIn, models.OrderConfirmed, OrderConfirm, "", true},
		{models.KindEatIn, models.OrderPreparing, OrderCancel, "", true},
		{models.KindEatIn, models.OrderReady, OrderCancel, "", true},
		{models.KindEatIn, models.OrderCompleted, OrderCancel, "", true},
		{models.KindDelivery, models.OrderOutForDelivery, OrderCancel, "", true},
		{models.KindEatIn, models.OrderReady, OrderMarkCollected, "", true},
		{models.KindTakeaway, models.OrderReady, OrderMarkServed, "", true},
		{models.KindEatIn, models.OrderReady, OrderMarkReadyForDispatch, "", true},
		{models.KindDelivery, models.OrderPreparing, OrderMarkReadyForDispatch, "", true},
		{models.KindDelivery, models.OrderReady, OrderMarkDelivered, "", true},
		{models.KindEatIn, models.OrderCancelled, OrderConfirm, "", true},
	}
	for _, tt := range tests {
		o := orderIn(t, tt.kind, tt.from)
		changed, err := ApplyOrderTransition(o, tt.tr, t1)
		if tt.wantErr {
			var ise *models.InvalidStateTransitionError
			if !errors.As(err, &ise) {
				t.Errorf("%s %s from %s: err = %v, want InvalidStateTransitionError", tt.kind, tt.tr, tt.from, err)
				continue
			}
			if ise.Transition != string(tt.tr) || ise.Current != string(tt.from) {
				t.Errorf("%s %s from %s: error names %q/%q", tt.kind, tt.tr, tt.from, ise.Transition, ise.Current)
			}
			if o.Status != tt.from || !o.UpdatedAt.Equal(t0) {
				t.Errorf("%s %s from %s: order mutated on failure", tt.kind, tt.tr, tt.from)
			}
			continue
		}
		if err != nil || !changed {
			t.Errorf("%s %s from %s: changed=%v err=%v", tt.kind, tt.tr, tt.from, changed, err)
			continue
		}
		if o.Status != tt.want {
			t.Errorf("%s %s from %s: status = %s, want %s", tt.kind, tt.tr, tt.from, o.Status, tt.want)
		}
		if !o.UpdatedAt.Equal(t1) {
			t.Errorf("%s %s from %s: UpdatedAt not bumped", tt.kind, tt.tr, tt.from)
		}
	}
}

func TestCompleteIsNoOpWhenCompleted(t *testing.T) {
	o := orderIn(t, models.KindTakeaway, models.OrderCompleted)
	changed, err := ApplyOrderTransition(o, OrderComplete, t1)
	if err != nil || changed {
		t.Fatalf("complete on COMPLETED: changed=%v err=%v", changed, err)
	}
	if !o.UpdatedAt.Equal(t0) {
		t.Errorf("UpdatedAt = %v, want unchanged %v", o.UpdatedAt, t0)
	}
}

func TestAssignDriverToOrder(t *testing.T) {
	o := orderIn(t, models.KindDelivery, models.OrderConfirmed)
	if err := AssignDriverToOrder(o, 9); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("assign in CONFIRMED: err = %v, want invalid transition", err)
	}

	o.Status = models.OrderReadyForDispatch
	if err := AssignDriverToOrder(o, 0); !errors.Is(err, models.ErrValidation) {
		t.Errorf("assign driver 0: err = %v, want validation", err)
	}
	if err := AssignDriverToOrder(o, 9); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if o.DriverID() != 9 || o.Status != models.OrderReadyForDispatch || !o.UpdatedAt.Equal(t0) {
		t.Errorf("after assign: driver=%d status=%s updated=%v", o.DriverID(), o.Status, o.UpdatedAt)
	}

	eatIn := orderIn(t, models.KindEatIn, models.OrderReadyForDispatch)
	if err := AssignDriverToOrder(eatIn, 9); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("assign on eat-in: err = %v", err)
	}
}

func TestReplaceOrderItems(t *testing.T) {
	o := orderIn(t, models.KindTakeaway, models.OrderConfirmed)
	more := append(testItems(t), testItems(t)...)
	if err := ReplaceOrderItems(o, more, t1); err != nil {
		t.Fatal(err)
	}
	if !o.TotalPrice.Equal(decimal.NewFromInt(24)) {
		t.Errorf("total = %s, want 24", o.TotalPrice)
	}

	o.Status = models.OrderPreparing
	if err := ReplaceOrderItems(o, testItems(t), t1); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("update while preparing: err = %v", err)
	}
}

func TestReleasesTable(t *testing.T) {
	tests := []struct {
		kind   models.OrderKind
		status models.OrderStatus
		want   bool
	}{
		{models.KindEatIn, models.OrderCompleted, true},
		{models.KindEatIn, models.OrderCancelled, true},
		{models.KindEatIn, models.OrderRejected, true},
		{models.KindEatIn, models.OrderConfirmed, false},
		{models.KindEatIn, models.OrderServed, false},
		{models.KindTakeaway, models.OrderCompleted, false},
	}
	for _, tt := range tests {
		if got := releasesTable(orderIn(t, tt.kind, tt.status)); got != tt.want {
			t.Errorf("releasesTable(%s, %s) = %v, want %v", tt.kind, tt.status, got, tt.want)
		}
	}
}
