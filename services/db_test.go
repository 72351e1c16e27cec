package services

import (
	"testing"

	"revenue-share-system/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openTestDB builds an in-memory database with the service's schema.
// The postgres column defaults (gen_random_uuid) don't exist on sqlite,
// so the tables are created by hand; every code path sets ids
// explicitly anyway.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	// Every pooled connection to :memory: gets its own database, so pin
	// the pool to one connection or half the queries see no tables.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE agreements (
			id TEXT PRIMARY KEY,
			contract_id TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'standard',
			owner_percentage NUMERIC NOT NULL,
			admin_percentage NUMERIC NOT NULL,
			editor_percentage NUMERIC NOT NULL,
			cascade_mode TEXT NOT NULL DEFAULT 'independent',
			is_active BOOLEAN NOT NULL DEFAULT 1,
			tiers_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE tiers (
			id TEXT PRIMARY KEY,
			agreement_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			user_role TEXT NOT NULL,
			tier_level INTEGER NOT NULL DEFAULT 1,
			percentage NUMERIC NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME,
			CONSTRAINT idx_tier_scope UNIQUE (agreement_id, user_id, user_role, tier_level)
		)`,
		`CREATE TABLE sales (
			id TEXT PRIMARY KEY,
			external_sale_id TEXT NOT NULL UNIQUE,
			agreement_id TEXT NOT NULL,
			gross_amount NUMERIC NOT NULL,
			currency TEXT NOT NULL,
			content_type TEXT,
			content_id TEXT,
			content_title TEXT,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE ledger_entries (
			id TEXT PRIMARY KEY,
			sale_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL,
			role TEXT NOT NULL,
			tier_level INTEGER NOT NULL DEFAULT 1,
			share_amount NUMERIC NOT NULL,
			share_percentage NUMERIC NOT NULL,
			original_amount NUMERIC NOT NULL,
			currency TEXT NOT NULL,
			content_type TEXT,
			content_id TEXT,
			content_title TEXT,
			payout_status TEXT NOT NULL DEFAULT 'pending',
			created_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// seedAgreement inserts an active 10/20/70 agreement and returns it.
func seedAgreement(t *testing.T, db *gorm.DB, contractID string) *models.Agreement {
	t.Helper()

	agreement := &models.Agreement{
		ID:               uuid.NewString(),
		ContractID:       contractID,
		Type:             models.AgreementTypeStandard,
		OwnerPercentage:  decimal.NewFromInt(10),
		AdminPercentage:  decimal.NewFromInt(20),
		EditorPercentage: decimal.NewFromInt(70),
		CascadeMode:      models.CascadeModeIndependent,
		IsActive:         true,
	}
	if err := db.Create(agreement).Error; err != nil {
		t.Fatalf("seed agreement: %v", err)
	}
	return agreement
}
