package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Pricing holds the checkout pricing rules.
type Pricing struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:               decimal.RequireFromString("0.10"),
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShipping:          decimal.NewFromInt(10),
	}
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// Compute derives totals from a subtotal. Tax is rounded to cents so the
// stored total always equals subtotal + tax + shipping - discount.
func (p Pricing) Compute(subtotal decimal.Decimal) Totals {
	tax := subtotal.Mul(p.TaxRate).Round(2)
	shipping := p.FlatShipping
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	t := Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: decimal.Zero,
	}
	t.Total = t.Subtotal.Add(t.Tax).Add(t.Shipping).Sub(t.Discount)
	return t
}

// Consistent reports whether Total matches its components and is non-negative.
func (t Totals) Consistent() bool {
	expected := t.Subtotal.Add(t.Tax).Add(t.Shipping).Sub(t.Discount)
	return t.Total.Equal(expected) && !t.Total.IsNegative()
}

const orderNumberPrefix = "ZN"

// FormatOrderNumber renders ZN + YYMMDD + a zero-padded daily sequence.
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("%s%04d", OrderNumberPrefix(day), seq)
}

// OrderNumberPrefix is the part of an order number shared by every order
// placed on day.
func OrderNumberPrefix(day time.Time) string {
	return orderNumberPrefix + day.Format("060102")
}

// ParseOrderSequence extracts the daily sequence from an order number that
// starts with prefix.
func ParseOrderSequence(number, prefix string) (int64, bool) {
	rest, ok := strings.CutPrefix(number, prefix)
	if !ok || rest == "" {
		return 0, false
	}
	seq, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}

// SequenceDay is the key of the per-day order counter.
func SequenceDay(t time.Time) string {
	return t.Format("060102")
}
