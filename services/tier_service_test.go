package services

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func newTierTestApp(db *gorm.DB, roles []string) *fiber.App {
	svc := NewTierService(db)
	app := fiber.New()
	app.Put("/agreements/:id/tiers", func(c *fiber.Ctx) error {
		c.Locals("user_roles", roles)
		return svc.UpsertTier(c)
	})
	return app
}

func putTier(t *testing.T, app *fiber.App, agreementID string, body map[string]interface{}) (int, models.Tier) {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest("PUT", "/agreements/"+agreementID+"/tiers", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var tier models.Tier
	if resp.StatusCode == fiber.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&tier); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode, tier
}

func TestUpsertTierRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	agreement := seedAgreement(t, db, "contract-tiers")
	app := newTierTestApp(db, []string{"owner"})

	body := map[string]interface{}{
		"user_id":    "editor-1",
		"user_role":  "editor",
		"tier_level": 1,
		"percentage": "50",
	}

	status, created := putTier(t, app, agreement.ID, body)
	if status != fiber.StatusOK {
		t.Fatalf("create: expected 200, got %d", status)
	}
	if created.Version != 1 {
		t.Fatalf("create: expected version 1, got %d", created.Version)
	}

	// An update carrying the version we just read lands and bumps it.
	body["percentage"] = "40"
	body["version"] = 1
	status, updated := putTier(t, app, agreement.ID, body)
	if status != fiber.StatusOK {
		t.Fatalf("update: expected 200, got %d", status)
	}
	if updated.Version != 2 {
		t.Fatalf("update: expected version 2, got %d", updated.Version)
	}

	// Replaying the same stale version must conflict, not overwrite.
	body["percentage"] = "30"
	status, _ = putTier(t, app, agreement.ID, body)
	if status != fiber.StatusConflict {
		t.Fatalf("stale update: expected 409, got %d", status)
	}

	var tier models.Tier
	if err := db.First(&tier, "id = ?", updated.ID).Error; err != nil {
		t.Fatalf("reload tier: %v", err)
	}
	if tier.Percentage.String() != "40" {
		t.Errorf("stale write must not change percentage: got %s", tier.Percentage.String())
	}
}

func TestUpsertTierCreateRaceConflicts(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	agreement := seedAgreement(t, db, "contract-tier-race")
	app := newTierTestApp(db, []string{"owner"})

	// Simulate losing a concurrent first-create: the scope row already
	// exists by the time our insert runs, and the database rejects the
	// duplicate with a violation isUniqueViolation must recognize.
	winner := models.Tier{
		ID:          "00000000-0000-0000-0000-000000000001",
		AgreementID: agreement.ID,
		UserID:      "admin-1",
		UserRole:    models.RoleAdmin,
		TierLevel:   1,
		Version:     1,
		IsActive:    true,
	}
	if err := db.Create(&winner).Error; err != nil {
		t.Fatalf("insert winner: %v", err)
	}
	loser := winner
	loser.ID = "00000000-0000-0000-0000-000000000002"
	if createErr := db.Create(&loser).Error; !isUniqueViolation(createErr) {
		t.Fatalf("expected unique violation from racing insert, got %v", createErr)
	}

	// Through the handler the loser's retry lands on the winner's row
	// and surfaces as a version conflict, never a 500.
	status, _ := putTier(t, app, agreement.ID, map[string]interface{}{
		"user_id":    "admin-1",
		"user_role":  "admin",
		"tier_level": 1,
		"percentage": "25",
		"version":    0,
	})
	if status != fiber.StatusConflict {
		t.Fatalf("expected 409 after losing the create race, got %d", status)
	}
}

func TestUpsertTierRequiresOwner(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	agreement := seedAgreement(t, db, "contract-tier-auth")
	app := newTierTestApp(db, []string{"editor"})

	status, _ := putTier(t, app, agreement.ID, map[string]interface{}{
		"user_id":    "editor-2",
		"user_role":  "editor",
		"percentage": "15",
	})
	if status != fiber.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", status)
	}
}
