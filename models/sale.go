package models

import "github.com/shopspring/decimal"

// Sale records a finalized sale event that produced ledger entries.
// ExternalSaleID carries the finalize-once guarantee: replays of the
// same sale hit the unique index and are rejected.
type Sale struct {
	ID             string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalSaleID string `gorm:"uniqueIndex;not null" json:"external_sale_id"`
	AgreementID    string `gorm:"index;not null;type:uuid" json:"agreement_id"`

	GrossAmount decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"gross_amount"`
	Currency    string          `gorm:"type:varchar(3);not null" json:"currency"`

	ContentType  string `gorm:"index" json:"content_type"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title"`

	Timestamps
}
