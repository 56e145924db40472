package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

type fakeWriter struct {
	messages []kafkaGo.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkaGo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func sampleOrder() domain.Order {
	d := decimal.RequireFromString
	return domain.Order{
		ID:            "6f1c2a34-0000-4000-8000-000000000001",
		OrderNumber:   "ZN2506010001",
		UserID:        "alice",
		CustomerEmail: "alice@example.com",
		Items: []domain.OrderItem{
			{Line: 1, ProductID: "shirt", Name: "Linen Shirt", Size: "M", Quantity: 2, UnitPrice: d("30"), LineTotal: d("60")},
			{Line: 2, ProductID: "tote", Name: "Canvas Tote", Size: "OS", Quantity: 1, UnitPrice: d("15"), LineTotal: d("15")},
		},
		Totals: domain.Totals{
			Subtotal: d("75"),
			Tax:      d("7.5"),
			Shipping: d("10"),
			Total:    d("92.5"),
		},
		Status:    domain.OrderStatusPending,
		CreatedAt: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Bodies(t *testing.T) {
	g := newGoldie(t)

	shipped := sampleOrder()
	shipped.Status = domain.OrderStatusShipped
	shipped.Tracking.TrackingNumber = "1Z999AA10123456784"
	shipped.Tracking.Carrier = "UPS"

	processing := sampleOrder()
	processing.Status = domain.OrderStatusProcessing

	cancelled := sampleOrder()
	cancelled.Status = domain.OrderStatusCancelled
	cancelled.CancellationReason = "Changed my mind"

	tests := []struct {
		golden  string
		kind    string
		order   domain.Order
		subject string
	}{
		{"order_confirmed", TypeOrderConfirmed, sampleOrder(), "Order Confirmation - ZN2506010001"},
		{"order_status_shipped", TypeOrderStatusChanged, shipped, "Order shipped - ZN2506010001"},
		{"order_status_processing", TypeOrderStatusChanged, processing, "Order processing - ZN2506010001"},
		{"order_cancelled", TypeOrderCancelled, cancelled, "Order Cancelled - ZN2506010001"},
	}

	for _, tt := range tests {
		t.Run(tt.golden, func(t *testing.T) {
			msg, err := Render(tt.kind, tt.order)
			require.NoError(t, err)
			assert.Equal(t, tt.subject, msg.Subject)
			assert.Equal(t, "alice@example.com", msg.To)
			assert.Equal(t, "92.50", msg.Total)
			g.Assert(t, tt.golden, []byte(msg.Body))
		})
	}
}

func TestRender_UnknownType(t *testing.T) {
	_, err := Render("order.refunded", sampleOrder())
	assert.Error(t, err)
}

func TestKafkaNotifier_Publishes(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifierWithWriter(w)
	ctx := context.Background()

	order := sampleOrder()
	require.NoError(t, n.OrderConfirmed(ctx, order))
	order.Status = domain.OrderStatusConfirmed
	require.NoError(t, n.OrderStatusChanged(ctx, order))

	require.Len(t, w.messages, 2)
	for _, m := range w.messages {
		assert.Equal(t, "ZN2506010001", string(m.Key))
	}

	var first Message
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &first))
	assert.Equal(t, TypeOrderConfirmed, first.Type)
	assert.Equal(t, "alice@example.com", first.To)
	assert.Equal(t, order.ID, first.OrderID)
	assert.Equal(t, "pending", first.Status)

	var second Message
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &second))
	assert.Equal(t, TypeOrderStatusChanged, second.Type)
	assert.Equal(t, "Order confirmed - ZN2506010001", second.Subject)

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_SkipsWithoutRecipient(t *testing.T) {
	w := &fakeWriter{}
	n := NewKafkaNotifierWithWriter(w)

	order := sampleOrder()
	order.CustomerEmail = ""
	require.NoError(t, n.OrderCancelled(context.Background(), order))
	assert.Empty(t, w.messages)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	n := NewKafkaNotifierWithWriter(w)

	err := n.OrderConfirmed(context.Background(), sampleOrder())
	require.Error(t, err)
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	n := NewLogNotifier(logger)

	require.NoError(t, n.OrderConfirmed(context.Background(), sampleOrder()))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Notification", entry["msg"])
	assert.Equal(t, TypeOrderConfirmed, entry["type"])
	assert.Equal(t, "Order Confirmation - ZN2506010001", entry["subject"])
	assert.NoError(t, n.Close())
}
