// services/tier_service.go
package services

import (
	"errors"
	"fmt"
	"log"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TierService struct {
	DB *gorm.DB
}

func NewTierService(db *gorm.DB) *TierService {
	return &TierService{DB: db}
}

// ListTiers returns the overrides defined on one agreement.
func (s *TierService) ListTiers(c *fiber.Ctx) error {
	agreementID := c.Params("id")
	if _, err := uuid.Parse(agreementID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid agreement ID"})
	}

	query := s.DB.Where("agreement_id = ?", agreementID)
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	var tiers []models.Tier
	if err := query.Order("tier_level ASC, created_at ASC").Find(&tiers).Error; err != nil {
		log.Printf("DB Error fetching tiers for agreement %s: %v", agreementID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch tiers"})
	}
	return c.JSON(tiers)
}

// UpsertTier creates or updates an override percentage for one
// (agreement, user, role, tier level) scope (owner only).
//
// Updates carry the version the caller last read; if someone edited the
// tier in between, the write fails with a conflict and the caller must
// re-fetch. Existing ledger entries are never touched — percentages
// only affect sales finalized after the edit.
func (s *TierService) UpsertTier(c *fiber.Ctx) error {
	if err := requireOwner(c); err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	agreementID := c.Params("id")
	if _, err := uuid.Parse(agreementID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid agreement ID"})
	}

	var req struct {
		UserID     string               `json:"user_id" validate:"required"`
		UserRole   models.RecipientRole `json:"user_role" validate:"required,oneof=owner admin editor"`
		TierLevel  int                  `json:"tier_level"`
		Percentage decimal.Decimal      `json:"percentage"`
		IsActive   *bool                `json:"is_active"`
		Version    int64                `json:"version"` // required when updating an existing tier
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validateTierInput(req.UserID, req.UserRole, req.Percentage); err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	if req.TierLevel < 1 {
		req.TierLevel = 1
	}

	var agreement models.Agreement
	if err := s.DB.First(&agreement, "id = ?", agreementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agreement not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	var tier models.Tier
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Tier
		findErr := tx.Where("agreement_id = ? AND user_id = ? AND user_role = ? AND tier_level = ?",
			agreementID, req.UserID, req.UserRole, req.TierLevel).First(&existing).Error

		if errors.Is(findErr, gorm.ErrRecordNotFound) {
			tier = models.Tier{
				ID:          uuid.NewString(),
				AgreementID: agreementID,
				UserID:      req.UserID,
				UserRole:    req.UserRole,
				TierLevel:   req.TierLevel,
				Percentage:  req.Percentage,
				IsActive:    true,
				Version:     1,
			}
			if req.IsActive != nil {
				tier.IsActive = *req.IsActive
			}
			if err := tx.Create(&tier).Error; err != nil {
				// A concurrent first-create raced us into idx_tier_scope;
				// the caller must re-fetch the winning row and retry.
				if isUniqueViolation(err) {
					return ErrStaleWrite
				}
				return err
			}
			return refreshTiersCount(tx, agreementID)
		}
		if findErr != nil {
			return findErr
		}

		isActive := existing.IsActive
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		// Optimistic concurrency: the update only lands if nobody bumped
		// the version since the caller read it.
		res := tx.Model(&models.Tier{}).
			Where("id = ? AND version = ?", existing.ID, req.Version).
			Updates(map[string]interface{}{
				"percentage": req.Percentage,
				"is_active":  isActive,
				"version":    existing.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleWrite
		}
		if err := tx.First(&tier, "id = ?", existing.ID).Error; err != nil {
			return err
		}
		return refreshTiersCount(tx, agreementID)
	})
	if err != nil {
		if errors.Is(err, ErrStaleWrite) {
			return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB Error upserting tier on agreement %s: %v", agreementID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to upsert tier"})
	}

	return c.JSON(tier)
}

func validateTierInput(userID string, role models.RecipientRole, percentage decimal.Decimal) error {
	if userID == "" {
		return fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if !models.ValidRole(role) {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, role)
	}
	if percentage.IsNegative() || percentage.GreaterThan(oneHundred) {
		return fmt.Errorf("%w: percentage must be within [0, 100]", ErrValidation)
	}
	return nil
}

// refreshTiersCount keeps the agreement's cached override count in sync.
func refreshTiersCount(tx *gorm.DB, agreementID string) error {
	var count int64
	if err := tx.Model(&models.Tier{}).
		Where("agreement_id = ? AND is_active = ?", agreementID, true).
		Count(&count).Error; err != nil {
		return err
	}
	return tx.Model(&models.Agreement{}).
		Where("id = ?", agreementID).
		Update("tiers_count", count).Error
}
