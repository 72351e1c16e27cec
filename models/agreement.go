package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AgreementType distinguishes platform-standard splits from negotiated ones
type AgreementType string

const (
	AgreementTypeStandard AgreementType = "standard"
	AgreementTypeCustom   AgreementType = "custom"
)

// CascadeMode selects how multi-level tier percentages are applied.
// "independent": every tier level takes its percentage of the original
// sale amount. "cascading": level N takes its percentage of whatever
// remains after levels < N were allocated.
type CascadeMode string

const (
	CascadeModeIndependent CascadeMode = "independent"
	CascadeModeCascading   CascadeMode = "cascading"
)

// Agreement is the distribution contract for a signed content contract.
// One active agreement per contract; superseded agreements are
// deactivated, never hard-deleted (ledger history points at them).
type Agreement struct {
	ID         string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ContractID string        `gorm:"index;not null" json:"contract_id"`
	Type       AgreementType `gorm:"not null;default:'standard'" json:"type"`

	// Default role splits, used when no tier override exists for a recipient
	OwnerPercentage  decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"owner_percentage"`
	AdminPercentage  decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"admin_percentage"`
	EditorPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"editor_percentage"`

	CascadeMode CascadeMode `gorm:"not null;default:'independent'" json:"cascade_mode"`
	IsActive    bool        `gorm:"not null;default:true;index" json:"is_active"`
	TiersCount  int64       `gorm:"not null;default:0" json:"tiers_count"` // cached count of active overrides

	Timestamps
}

// DefaultPercentage returns the agreement-level split for a role.
func (a *Agreement) DefaultPercentage(role RecipientRole) decimal.Decimal {
	switch role {
	case RoleOwner:
		return a.OwnerPercentage
	case RoleAdmin:
		return a.AdminPercentage
	case RoleEditor:
		return a.EditorPercentage
	}
	return decimal.Zero
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
