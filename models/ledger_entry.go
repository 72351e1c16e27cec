package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutStatus tracks the external payout subsystem's progress on an entry
type PayoutStatus string

const (
	PayoutStatusPending    PayoutStatus = "pending"
	PayoutStatusProcessing PayoutStatus = "processing"
	PayoutStatusCompleted  PayoutStatus = "completed"
	PayoutStatusFailed     PayoutStatus = "failed"
)

// ValidPayoutStatus reports whether s is a known status value.
func ValidPayoutStatus(s PayoutStatus) bool {
	switch s {
	case PayoutStatusPending, PayoutStatusProcessing, PayoutStatusCompleted, PayoutStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo enforces the payout state machine:
// pending -> processing -> {completed, failed}. Everything else is rejected.
func (s PayoutStatus) CanTransitionTo(next PayoutStatus) bool {
	switch s {
	case PayoutStatusPending:
		return next == PayoutStatusProcessing
	case PayoutStatusProcessing:
		return next == PayoutStatusCompleted || next == PayoutStatusFailed
	}
	return false
}

// LedgerEntry is one recipient's realized share of one sale.
// Append-only audit fact: amounts, percentage and CreatedAt are baked in
// at finalize time and never recomputed, even if tier percentages change
// later. Only PayoutStatus moves after creation.
type LedgerEntry struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	SaleID string `gorm:"index;not null;type:uuid" json:"sale_id"`

	RecipientID string        `gorm:"index;not null" json:"recipient_id"`
	Role        RecipientRole `gorm:"index;not null" json:"role"`
	TierLevel   int           `gorm:"not null;default:1" json:"tier_level"`

	ShareAmount     decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"share_amount"`
	SharePercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"share_percentage"`
	OriginalAmount  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"original_amount"`
	Currency        string          `gorm:"type:varchar(3);not null" json:"currency"`

	ContentType  string `gorm:"index" json:"content_type"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title"`

	PayoutStatus PayoutStatus `gorm:"not null;default:'pending';index" json:"payout_status"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}
