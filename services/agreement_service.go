// services/agreement_service.go
package services

import (
	"errors"
	"log"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type AgreementService struct {
	DB *gorm.DB
}

func NewAgreementService(db *gorm.DB) *AgreementService {
	return &AgreementService{DB: db}
}

// ListAgreements returns all agreements, newest first. Pass ?active=true
// to restrict to the ones currently in force.
func (s *AgreementService) ListAgreements(c *fiber.Ctx) error {
	query := s.DB.Model(&models.Agreement{})
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}
	if contractID := c.Query("contract_id"); contractID != "" {
		query = query.Where("contract_id = ?", contractID)
	}

	var agreements []models.Agreement
	if err := query.Order("created_at DESC").Find(&agreements).Error; err != nil {
		log.Printf("DB Error fetching agreements: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch agreements"})
	}
	return c.JSON(agreements)
}

// CreateAgreement creates a new distribution contract (owner only).
// Creating an agreement for a contract that already has an active one
// deactivates the old agreement — supersede, never delete.
func (s *AgreementService) CreateAgreement(c *fiber.Ctx) error {
	if err := requireOwner(c); err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	var req struct {
		ContractID       string               `json:"contract_id" validate:"required"`
		Type             models.AgreementType `json:"type" validate:"omitempty,oneof=standard custom"`
		OwnerPercentage  decimal.Decimal      `json:"owner_percentage"`
		AdminPercentage  decimal.Decimal      `json:"admin_percentage"`
		EditorPercentage decimal.Decimal      `json:"editor_percentage"`
		CascadeMode      models.CascadeMode   `json:"cascade_mode" validate:"omitempty,oneof=independent cascading"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.ContractID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "contract_id is required"})
	}
	for _, p := range []decimal.Decimal{req.OwnerPercentage, req.AdminPercentage, req.EditorPercentage} {
		if p.IsNegative() || p.GreaterThan(oneHundred) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "percentages must be within [0, 100]"})
		}
	}
	// Defaults summing past 100 would make every independent-mode sale
	// fail with over-allocation; reject the configuration up front.
	if req.OwnerPercentage.Add(req.AdminPercentage).Add(req.EditorPercentage).GreaterThan(oneHundred) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "default percentages must sum to at most 100"})
	}
	if req.Type == "" {
		req.Type = models.AgreementTypeStandard
	}
	if req.CascadeMode == "" {
		req.CascadeMode = models.CascadeModeIndependent
	}

	agreement := &models.Agreement{
		ID:               uuid.NewString(),
		ContractID:       req.ContractID,
		Type:             req.Type,
		OwnerPercentage:  req.OwnerPercentage,
		AdminPercentage:  req.AdminPercentage,
		EditorPercentage: req.EditorPercentage,
		CascadeMode:      req.CascadeMode,
		IsActive:         true,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Agreement{}).
			Where("contract_id = ? AND is_active = ?", req.ContractID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(agreement).Error
	})
	if err != nil {
		log.Printf("DB Error creating agreement: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create agreement"})
	}

	return c.Status(fiber.StatusCreated).JSON(agreement)
}

// DeactivateAgreement marks an agreement as superseded (owner only).
func (s *AgreementService) DeactivateAgreement(c *fiber.Ctx) error {
	if err := requireOwner(c); err != nil {
		return c.Status(StatusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid agreement ID"})
	}

	var agreement models.Agreement
	if err := s.DB.First(&agreement, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Agreement not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if agreement.IsActive {
		agreement.IsActive = false
		if err := s.DB.Save(&agreement).Error; err != nil {
			log.Printf("DB Error deactivating agreement %s: %v", id, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate agreement"})
		}
	}

	return c.JSON(fiber.Map{"message": "Agreement deactivated", "agreement": agreement})
}

// activeAgreementForContract loads the agreement currently in force for
// a contract, plus its active tier overrides.
func activeAgreementForContract(db *gorm.DB, contractID string) (*models.Agreement, []models.Tier, error) {
	var agreement models.Agreement
	if err := db.Where("contract_id = ? AND is_active = ?", contractID, true).
		Order("created_at DESC").First(&agreement).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNoActiveAgreement
		}
		return nil, nil, err
	}

	var tiers []models.Tier
	if err := db.Where("agreement_id = ? AND is_active = ?", agreement.ID, true).
		Find(&tiers).Error; err != nil {
		return nil, nil, err
	}
	return &agreement, tiers, nil
}

// requireOwner checks the gateway-supplied roles for owner privilege.
func requireOwner(c *fiber.Ctx) error {
	roles, _ := c.Locals("user_roles").([]string)
	for _, r := range roles {
		if r == "owner" {
			return nil
		}
	}
	return ErrNotAuthorized
}
