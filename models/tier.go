package models

import "github.com/shopspring/decimal"

// RecipientRole is the role a recipient holds on a piece of content
type RecipientRole string

const (
	RoleOwner  RecipientRole = "owner"
	RoleAdmin  RecipientRole = "admin"
	RoleEditor RecipientRole = "editor"
)

// ValidRole reports whether r is one of the three distributable roles.
func ValidRole(r RecipientRole) bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleEditor:
		return true
	}
	return false
}

// Tier is a per-user percentage override on an agreement.
// Scoped to one (agreement, user, role, tier level) — tier level 1 is the
// direct recipient, level 2+ are upline/referral lines.
type Tier struct {
	ID          string        `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AgreementID string        `gorm:"index:idx_tier_scope,unique;not null;type:uuid" json:"agreement_id"`
	UserID      string        `gorm:"index:idx_tier_scope,unique;not null" json:"user_id"`
	UserRole    RecipientRole `gorm:"index:idx_tier_scope,unique;not null" json:"user_role"`
	TierLevel   int           `gorm:"index:idx_tier_scope,unique;not null;default:1" json:"tier_level"`

	Percentage decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentage"`
	IsActive   bool            `gorm:"not null;default:true" json:"is_active"`

	// Optimistic lock — bumped on every edit, checked on update
	Version int64 `gorm:"not null;default:1" json:"version"`

	Timestamps
}
