package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimeRange is the preset window for analytics queries
type TimeRange string

const (
	TimeRangeWeek    TimeRange = "week"
	TimeRangeMonth   TimeRange = "month"
	TimeRangeQuarter TimeRange = "quarter"
	TimeRangeYear    TimeRange = "year"
)

// RoleRevenue is a grouped sum+count for one role
type RoleRevenue struct {
	Role        RecipientRole   `json:"role"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	EntryCount  int64           `json:"entry_count"`
}

// ContentRevenue is a grouped sum+count for one content type
type ContentRevenue struct {
	ContentType string          `json:"content_type"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	EntryCount  int64           `json:"entry_count"`
}

// TopEarner is one row of the ranked-earners rollup
type TopEarner struct {
	RecipientID string          `json:"recipient_id"`
	Username    string          `json:"username,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	EntryCount  int64           `json:"entry_count"`
}

// AnalyticsSnapshot is derived on demand from the ledger; it has no
// persisted lifecycle of its own.
type AnalyticsSnapshot struct {
	RangeStart       time.Time        `json:"range_start"`
	RangeEnd         time.Time        `json:"range_end"`
	RevenueByRole    []RoleRevenue    `json:"revenue_by_role"`
	RevenueByContent []ContentRevenue `json:"revenue_by_content"`
	TopEarners       []TopEarner      `json:"top_earners"`
	GeneratedAt      time.Time        `json:"generated_at"`
}
