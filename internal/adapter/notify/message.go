package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

const (
	TypeOrderConfirmed     = "order.confirmed"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderCancelled     = "order.cancelled"
)

// Message is one customer notification as published for the mail worker.
type Message struct {
	Type        string `json:"type"`
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
	Total       string `json:"total"`
}

var funcs = template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var confirmedBody = template.Must(template.New("confirmed").Funcs(funcs).Parse(`Order Confirmed!

Thank you for your order.

Order #{{.OrderNumber}}
{{range .Items}}- {{.Name}} ({{.Size}}) x{{.Quantity}}: ${{money .LineTotal}}
{{end}}
Subtotal: ${{money .Totals.Subtotal}}
Tax: ${{money .Totals.Tax}}
Shipping: ${{money .Totals.Shipping}}
Total: ${{money .Totals.Total}}
`))

var statusBody = template.Must(template.New("status").Funcs(funcs).Parse(`Order Status Update

Your order #{{.OrderNumber}} is now {{.Status}}.
{{with .Tracking.TrackingNumber}}Tracking: {{.}}
{{end}}`))

var cancelledBody = template.Must(template.New("cancelled").Funcs(funcs).Parse(`Order Cancelled

Your order #{{.OrderNumber}} has been cancelled.
Reason: {{.CancellationReason}}
Any reserved items have been returned to stock.
`))

// Render builds the notification of the given type for order.
func Render(kind string, order domain.Order) (Message, error) {
	var (
		tmpl    *template.Template
		subject string
	)
	switch kind {
	case TypeOrderConfirmed:
		tmpl, subject = confirmedBody, fmt.Sprintf("Order Confirmation - %s", order.OrderNumber)
	case TypeOrderStatusChanged:
		tmpl, subject = statusBody, fmt.Sprintf("Order %s - %s", order.Status, order.OrderNumber)
	case TypeOrderCancelled:
		tmpl, subject = cancelledBody, fmt.Sprintf("Order Cancelled - %s", order.OrderNumber)
	default:
		return Message{}, fmt.Errorf("unknown notification type %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, order); err != nil {
		return Message{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Message{
		Type:        kind,
		To:          order.CustomerEmail,
		Subject:     subject,
		Body:        body.String(),
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Total:       order.Totals.Total.StringFixed(2),
	}, nil
}
