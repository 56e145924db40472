package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(status OrderStatus) *Order {
	return &Order{
		ID:      "order-1",
		UserID:  "user-1",
		Status:  status,
		Payment: Payment{Method: PaymentMethodCOD, Status: PaymentStatusPending},
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		want     bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusConfirmed, OrderStatusCancelled, true},
		{OrderStatusProcessing, OrderStatusCancelled, false},
		{OrderStatusShipped, OrderStatusPending, false},
		{OrderStatusShipped, OrderStatusConfirmed, false},
		{OrderStatusPending, OrderStatusDelivered, false},
		{OrderStatusDelivered, OrderStatusPending, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestOrder_TransitionAppendsHistory(t *testing.T) {
	o := newTestOrder(OrderStatusPending)

	require.NoError(t, o.Transition(OrderStatusConfirmed, "payment verified", "admin-1", testNow))

	assert.Equal(t, OrderStatusConfirmed, o.Status)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusChange{
		Seq:       1,
		Status:    OrderStatusConfirmed,
		Note:      "payment verified",
		UpdatedBy: "admin-1",
		UpdatedAt: testNow,
	}, o.StatusHistory[0])
}

func TestOrder_TransitionRejectsIllegal(t *testing.T) {
	o := newTestOrder(OrderStatusShipped)

	err := o.Transition(OrderStatusPending, "", "admin-1", testNow)

	assert.Equal(t, KindIllegalTransition, KindOf(err))
	assert.Equal(t, OrderStatusShipped, o.Status)
	assert.Empty(t, o.StatusHistory)
}

func TestOrder_ShippedAndDeliveredSideEffects(t *testing.T) {
	o := newTestOrder(OrderStatusProcessing)
	shipAt := testNow.Add(time.Hour)
	deliverAt := testNow.Add(48 * time.Hour)

	require.NoError(t, o.Transition(OrderStatusShipped, "", "admin-1", shipAt))
	require.NotNil(t, o.Tracking.ShippedAt)
	assert.Equal(t, shipAt, *o.Tracking.ShippedAt)
	assert.Equal(t, PaymentStatusPending, o.Payment.Status)

	require.NoError(t, o.Transition(OrderStatusDelivered, "", "admin-1", deliverAt))
	assert.Equal(t, PaymentStatusCompleted, o.Payment.Status)
	require.NotNil(t, o.Payment.PaidAt)
	require.NotNil(t, o.Tracking.DeliveredAt)
	assert.Equal(t, deliverAt, *o.Tracking.DeliveredAt)
	assert.True(t, o.Status.IsTerminal())
	assert.Len(t, o.StatusHistory, 2)
}

func TestOrder_Cancel(t *testing.T) {
	o := newTestOrder(OrderStatusConfirmed)

	require.NoError(t, o.Cancel("", "user-1", testNow))

	assert.Equal(t, OrderStatusCancelled, o.Status)
	require.NotNil(t, o.CancelledAt)
	assert.Equal(t, DefaultCancellationReason, o.CancellationReason)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, OrderStatusCancelled, o.StatusHistory[0].Status)
}

func TestOrder_CancelRejectedAfterProcessing(t *testing.T) {
	for _, st := range []OrderStatus{OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled} {
		o := newTestOrder(st)
		err := o.Cancel("changed my mind", "user-1", testNow)
		assert.ErrorIs(t, err, ErrOrderNotCancellable, st)
		assert.Equal(t, st, o.Status)
	}
}

func TestOrder_SetTrackingIgnoresEmptyNumber(t *testing.T) {
	o := newTestOrder(OrderStatusProcessing)
	o.SetTracking("", "UPS")
	assert.Empty(t, o.Tracking.Carrier)

	o.SetTracking("1Z999", "UPS")
	assert.Equal(t, "1Z999", o.Tracking.TrackingNumber)
	assert.Equal(t, "UPS", o.Tracking.Carrier)
}

func TestOrder_Access(t *testing.T) {
	o := newTestOrder(OrderStatusPending)

	assert.True(t, o.CanBeAccessedBy(Actor{ID: "user-1", Role: RoleUser}))
	assert.True(t, o.CanBeAccessedBy(Actor{ID: "admin-9", Role: RoleAdmin}))
	assert.False(t, o.CanBeAccessedBy(Actor{ID: "user-2", Role: RoleUser}))
}

func TestAddress_Validate(t *testing.T) {
	addr := Address{
		FullName:     "Ada Lovelace",
		AddressLine1: "1 Analytical St",
		City:         "London",
		State:        "LDN",
		ZipCode:      "N1",
		Country:      "UK",
		Phone:        "+44 20 0000",
	}
	require.NoError(t, addr.Validate("shipping"))

	addr.City = " "
	err := addr.Validate("shipping")
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "shipping city is required")
}

func TestParsers(t *testing.T) {
	m, err := ParsePaymentMethod("")
	require.NoError(t, err)
	assert.Equal(t, PaymentMethodCOD, m)

	_, err = ParsePaymentMethod("bitcoin")
	assert.Equal(t, KindValidation, KindOf(err))

	st, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, st)

	_, err = ParseOrderStatus("lost")
	assert.Equal(t, KindValidation, KindOf(err))
}
