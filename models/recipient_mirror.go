package models

import (
	"time"

	"gorm.io/gorm"
)

// RecipientMirror is a local snapshot of recipient display data needed
// for ledger listings and CSV export. Owned solely by this service;
// populated by the recipient sync worker from the profile service.
type RecipientMirror struct {
	ID             string  `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID string  `gorm:"uniqueIndex;not null" json:"external_user_id"`
	Username       string  `gorm:"index;not null" json:"username"`
	Email          string  `json:"email,omitempty"`
	DisplayName    *string `json:"display_name,omitempty"`
	AvatarURL      *string `json:"avatar_url,omitempty"`

	IsSuspended bool `json:"is_suspended" gorm:"default:false"` // blocks payouts, not ledger history

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
