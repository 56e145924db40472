package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MaxOrderNotesLength       = 500
	DefaultCancellationReason = "Cancelled by user"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Actor is the authenticated caller as forwarded by the gateway.
type Actor struct {
	ID    string
	Role  Role
	Email string
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type Address struct {
	FullName     string `json:"full_name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2,omitempty"`
	City         string `json:"city"`
	State        string `json:"state"`
	ZipCode      string `json:"zip_code"`
	Country      string `json:"country"`
	Phone        string `json:"phone"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Validate requires every field except the second address line.
func (a Address) Validate(label string) error {
	required := []struct {
		name, value string
	}{
		{"full name", a.FullName},
		{"address line 1", a.AddressLine1},
		{"city", a.City},
		{"state", a.State},
		{"zip code", a.ZipCode},
		{"country", a.Country},
		{"phone", a.Phone},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return NewValidationError("%s %s is required", label, f.name)
		}
	}
	return nil
}

// OrderItem is a frozen copy of the product at checkout time.
type OrderItem struct {
	Line      int             `json:"line"`
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	SKU       string          `json:"sku,omitempty"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type Tracking struct {
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	TrackingURL    string     `json:"tracking_url,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// StatusChange is one entry of the append-only status history.
type StatusChange struct {
	Seq       int         `json:"seq"`
	Status    OrderStatus `json:"status"`
	Note      string      `json:"note,omitempty"`
	UpdatedBy string      `json:"updated_by,omitempty"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type Order struct {
	ID                 string         `json:"id"`
	OrderNumber        string         `json:"order_number"`
	UserID             string         `json:"user_id"`
	CustomerEmail      string         `json:"customer_email,omitempty"`
	Items              []OrderItem    `json:"items"`
	ShippingAddress    Address        `json:"shipping_address"`
	BillingAddress     Address        `json:"billing_address"`
	Payment            Payment        `json:"payment"`
	Totals             Totals         `json:"totals"`
	Status             OrderStatus    `json:"status"`
	StatusHistory      []StatusChange `json:"status_history"`
	Tracking           Tracking       `json:"tracking"`
	Notes              string         `json:"notes,omitempty"`
	CancelledAt        *time.Time     `json:"cancelled_at,omitempty"`
	CancellationReason string         `json:"cancellation_reason,omitempty"`
	Version            int            `json:"version"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func (o *Order) OwnedBy(actor Actor) bool {
	return o.UserID == actor.ID
}

// CanBeAccessedBy allows the owner and admins.
func (o *Order) CanBeAccessedBy(actor Actor) bool {
	return o.OwnedBy(actor) || actor.IsAdmin()
}

func (o *Order) CanBeCancelled() bool {
	return o.Status.Cancellable()
}

// Cancel moves a pending or confirmed order to cancelled.
func (o *Order) Cancel(reason, actorID string, now time.Time) error {
	if !o.CanBeCancelled() {
		return ErrOrderNotCancellable
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancellationReason
	}
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancellationReason = reason
	o.appendHistory(OrderStatusCancelled, reason, actorID, now)
	return nil
}

// Transition applies a forward, non-cancelling status change and its side
// effects on tracking and payment.
func (o *Order) Transition(to OrderStatus, note, actorID string, now time.Time) error {
	if to == OrderStatusCancelled {
		return o.Cancel(note, actorID, now)
	}
	if !CanTransition(o.Status, to) {
		return NewIllegalTransitionError(o.Status, to)
	}

	o.Status = to
	o.appendHistory(to, note, actorID, now)

	switch to {
	case OrderStatusShipped:
		o.Tracking.ShippedAt = &now
	case OrderStatusDelivered:
		o.Payment.Status = PaymentStatusCompleted
		o.Payment.PaidAt = &now
		o.Tracking.DeliveredAt = &now
	}
	return nil
}

func (o *Order) SetTracking(number, carrier string) {
	if number == "" {
		return
	}
	o.Tracking.TrackingNumber = number
	o.Tracking.Carrier = carrier
}

func (o *Order) appendHistory(status OrderStatus, note, actorID string, now time.Time) {
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Seq:       len(o.StatusHistory) + 1,
		Status:    status,
		Note:      note,
		UpdatedBy: actorID,
		UpdatedAt: now,
	})
	o.UpdatedAt = now
}
