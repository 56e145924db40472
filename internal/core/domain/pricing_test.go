package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPricing_Compute(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		tax      string
		shipping string
		total    string
	}{
		{"below threshold pays flat shipping", "60.00", "6.00", "10", "76.00"},
		{"exactly threshold still pays shipping", "100.00", "10.00", "10", "120.00"},
		{"above threshold ships free", "150.00", "15.00", "0", "165.00"},
		{"tax rounded to cents", "39.98", "4.00", "10", "53.98"},
		{"empty subtotal", "0", "0", "10", "10.00"},
	}
	pricing := DefaultPricing()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := pricing.Compute(decimal.RequireFromString(tt.subtotal))

			assert.True(t, totals.Tax.Equal(decimal.RequireFromString(tt.tax)), "tax %s", totals.Tax)
			assert.True(t, totals.Shipping.Equal(decimal.RequireFromString(tt.shipping)), "shipping %s", totals.Shipping)
			assert.True(t, totals.Total.Equal(decimal.RequireFromString(tt.total)), "total %s", totals.Total)
			assert.True(t, totals.Discount.IsZero())
			assert.True(t, totals.Consistent())
		})
	}
}

func TestTotals_ConsistentDetectsMismatch(t *testing.T) {
	totals := DefaultPricing().Compute(decimal.NewFromInt(50))
	totals.Total = totals.Total.Add(decimal.NewFromInt(1))
	assert.False(t, totals.Consistent())
}

func TestFormatOrderNumber(t *testing.T) {
	day := time.Date(2025, 6, 1, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "ZN2506010007", FormatOrderNumber(day, 7))
	assert.Equal(t, "ZN2506010001", FormatOrderNumber(day, 1))
	assert.Equal(t, "ZN2506010002", FormatOrderNumber(day, 2))
	assert.Equal(t, "250601", SequenceDay(day))
}

func TestParseOrderSequence(t *testing.T) {
	day := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	prefix := OrderNumberPrefix(day)
	assert.Equal(t, "ZN250601", prefix)

	tests := []struct {
		number string
		seq    int64
		ok     bool
	}{
		{"ZN2506010007", 7, true},
		{"ZN25060112345", 12345, true},
		{"ZN2506020001", 0, false},
		{"ZN250601", 0, false},
		{"ZN250601abcd", 0, false},
	}
	for _, tt := range tests {
		seq, ok := ParseOrderSequence(tt.number, prefix)
		assert.Equal(t, tt.ok, ok, tt.number)
		assert.Equal(t, tt.seq, seq, tt.number)
	}
}
