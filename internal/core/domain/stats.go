package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultStatsWindow = 30 * 24 * time.Hour

const (
	MaxPageLimit = 100
	maxRowOffset = math.MaxInt32
)

// OrderTotal is the slice of an order needed for statistics.
type OrderTotal struct {
	Status OrderStatus
	Total  decimal.Decimal
}

type OrderStats struct {
	TotalOrders       int             `json:"total_orders"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int         `json:"count"`
}

type StatsReport struct {
	From         time.Time     `json:"from"`
	To           time.Time     `json:"to"`
	Stats        OrderStats    `json:"stats"`
	StatusCounts []StatusCount `json:"status_counts"`
}

// ComputeStats aggregates revenue over non-cancelled orders.
func ComputeStats(rows []OrderTotal) OrderStats {
	stats := OrderStats{TotalRevenue: decimal.Zero, AverageOrderValue: decimal.Zero}
	for _, r := range rows {
		if r.Status == OrderStatusCancelled {
			continue
		}
		stats.TotalOrders++
		stats.TotalRevenue = stats.TotalRevenue.Add(r.Total)
	}
	if stats.TotalOrders > 0 {
		stats.AverageOrderValue = stats.TotalRevenue.Div(decimal.NewFromInt(int64(stats.TotalOrders))).Round(2)
	}
	return stats
}

// ComputeStatusCounts groups all orders by status, in lifecycle order,
// omitting statuses with no orders.
func ComputeStatusCounts(rows []OrderTotal) []StatusCount {
	counts := make(map[OrderStatus]int)
	for _, r := range rows {
		counts[r.Status]++
	}
	result := make([]StatusCount, 0, len(counts))
	for _, st := range OrderStatuses {
		if n := counts[st]; n > 0 {
			result = append(result, StatusCount{Status: st, Count: n})
		}
	}
	return result
}

// StatsRange fills in the default window ending now.
func StatsRange(from, to *time.Time, now time.Time) (time.Time, time.Time) {
	end := now
	if to != nil {
		end = *to
	}
	start := end.Add(-DefaultStatsWindow)
	if from != nil {
		start = *from
	}
	return start, end
}

// Page describes a paginated listing.
type Page struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

func NewPage(page, limit, total int) Page {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{Page: page, Limit: limit, Total: total, Pages: pages}
}

// NormalizePaging applies defaults to non-positive page/limit, caps limit at
// MaxPageLimit and returns the row offset. A page whose offset would not fit
// a database OFFSET is a validation error.
func NormalizePaging(page, limit, defaultLimit int) (int, int, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, MaxPageLimit)
	if page-1 > maxRowOffset/limit {
		return 0, 0, 0, NewValidationError("page %d is out of range", page)
	}
	return page, limit, (page - 1) * limit, nil
}
