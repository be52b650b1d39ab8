package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink keeps every notification it receives, by method.
type recordingSink struct {
	got []Notification
	via []string
	err error
}

func (r *recordingSink) add(via string, n Notification) error {
	r.got = append(r.got, n)
	r.via = append(r.via, via)
	return r.err
}

func (r *recordingSink) SendConfirmation(_ context.Context, n Notification) error {
	return r.add("confirmation", n)
}
func (r *recordingSink) SendStatusUpdate(_ context.Context, n Notification) error {
	return r.add("status", n)
}
func (r *recordingSink) SendCancellation(_ context.Context, n Notification) error {
	return r.add("cancellation", n)
}
func (r *recordingSink) SendPendingBookingAlert(_ context.Context, n Notification) error {
	return r.add("pending", n)
}
func (r *recordingSink) SendDriverAssigned(_ context.Context, n Notification) error {
	return r.add("driver", n)
}

func (r *recordingSink) kinds() []NotificationKind {
	out := make([]NotificationKind, len(r.got))
	for i, n := range r.got {
		out[i] = n.Kind
	}
	return out
}

func TestDispatchRoutesByKind(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	for _, k := range []NotificationKind{NotifyConfirmation, NotifyStatusUpdate, NotifyCancellation, NotifyPendingBooking, NotifyDriverAssigned} {
		require.NoError(t, Dispatch(ctx, sink, Notification{Kind: k}))
	}
	assert.Equal(t, []string{"confirmation", "status", "cancellation", "pending", "driver"}, sink.via)
	assert.Error(t, Dispatch(ctx, sink, Notification{Kind: "telepathy"}))
}

func TestMultiSinkDeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("queue down")}
	m := NewMultiSink().Add("broken", broken).Add("ok", ok)

	err := m.SendStatusUpdate(context.Background(), Notification{Kind: NotifyStatusUpdate, EntityID: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: queue down")
	assert.Len(t, ok.got, 1, "a failing sink must not starve the others")
	assert.Equal(t, 2, m.Len())
}

func TestRenderNotification(t *testing.T) {
	tests := []struct {
		n    Notification
		want string
	}{
		{Notification{Kind: NotifyConfirmation, Entity: EntityOrder, EntityID: 4}, "✅ Order #4 is confirmed."},
		{Notification{Kind: NotifyConfirmation, Entity: EntityBooking, EntityID: 2, TableNumber: 6}, "✅ Booking #2 is confirmed. Table 6 is reserved for you."},
		{Notification{Kind: NotifyCancellation, Entity: EntityBooking, EntityID: 2, NewStatus: "CANCELLED_BY_STAFF"}, "❌ Booking #2 was cancelled by staff."},
		{Notification{Kind: NotifyPendingBooking, Entity: EntityBooking, EntityID: 9}, "🔔 Booking #9 is waiting for approval."},
		{Notification{Kind: NotifyDriverAssigned, Entity: EntityOrder, EntityID: 4, DriverID: 8}, "🚗 Order #4 is assigned to driver #8."},
		{Notification{Kind: NotifyStatusUpdate, Entity: EntityOrder, EntityID: 4, NewStatus: "PENDING_CONFIRMATION"}, "Order #4: pending confirmation."},
		{Notification{Kind: NotifyStatusUpdate, Entity: EntityOrder, EntityID: 4, OldStatus: "READY", NewStatus: "COMPLETED"}, "Order #4: ready → completed."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RenderNotification(tt.n))
	}
}
