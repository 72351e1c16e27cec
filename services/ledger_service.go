// services/ledger_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"gorm.io/gorm"
)

const finalizeTimeout = 5 * time.Second

type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// FinalizeSaleInput is the distribution engine's entry point payload.
type FinalizeSaleInput struct {
	SaleID       string              `json:"sale_id"`
	ContractID   string              `json:"contract_id"`
	Amount       decimal.Decimal     `json:"amount"`
	Currency     string              `json:"currency"`
	ContentType  string              `json:"content_type"`
	ContentID    string              `json:"content_id"`
	ContentTitle string              `json:"content_title"`
	Recipients   []EligibleRecipient `json:"recipients"`
}

// FinalizeSale resolves and persists the shares for one sale.
// All entries for the sale land in a single transaction; the unique
// external sale id rejects replays so the ledger never holds a partial
// or doubled distribution.
func (s *LedgerService) FinalizeSale(c *fiber.Ctx) error {
	var req FinalizeSaleInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), finalizeTimeout)
	defer cancel()

	sale, entries, err := s.finalizeSale(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = ErrTimeout
		}
		status := StatusForError(err)
		if status == fiber.StatusInternalServerError {
			log.Printf("Finalize failed for sale %s: %v", req.SaleID, err)
			return c.Status(status).JSON(fiber.Map{"error": "Failed to finalize sale"})
		}
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"sale":    sale,
		"entries": entries,
	})
}

func (s *LedgerService) finalizeSale(ctx context.Context, req FinalizeSaleInput) (*models.Sale, []models.LedgerEntry, error) {
	if req.SaleID == "" {
		return nil, nil, fmt.Errorf("%w: sale_id is required", ErrValidation)
	}
	if req.ContractID == "" {
		return nil, nil, fmt.Errorf("%w: contract_id is required", ErrValidation)
	}
	if len(req.Recipients) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one recipient is required", ErrValidation)
	}
	unit, err := currency.ParseISO(req.Currency)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: unknown currency %q", ErrValidation, req.Currency)
	}

	db := s.DB.WithContext(ctx)

	agreement, tiers, err := activeAgreementForContract(db, req.ContractID)
	if err != nil {
		return nil, nil, err
	}

	shares, err := ResolveShares(agreement, tiers, req.Amount, req.Recipients)
	if err != nil {
		return nil, nil, err
	}

	sale := &models.Sale{
		ID:             uuid.NewString(),
		ExternalSaleID: req.SaleID,
		AgreementID:    agreement.ID,
		GrossAmount:    req.Amount,
		Currency:       unit.String(),
		ContentType:    req.ContentType,
		ContentID:      req.ContentID,
		ContentTitle:   req.ContentTitle,
	}

	entries := make([]models.LedgerEntry, 0, len(shares))
	for _, share := range shares {
		entries = append(entries, models.LedgerEntry{
			ID:              uuid.NewString(),
			SaleID:          sale.ID,
			RecipientID:     share.RecipientID,
			Role:            share.Role,
			TierLevel:       share.TierLevel,
			ShareAmount:     share.Amount,
			SharePercentage: share.Percentage,
			OriginalAmount:  req.Amount,
			Currency:        unit.String(),
			ContentType:     req.ContentType,
			ContentID:       req.ContentID,
			ContentTitle:    req.ContentTitle,
			PayoutStatus:    models.PayoutStatusPending,
		})
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		// Explicit check first for a clean error; the unique index on
		// external_sale_id backstops races between concurrent replays.
		var count int64
		if err := tx.Model(&models.Sale{}).
			Where("external_sale_id = ?", req.SaleID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSale
		}
		if err := tx.Create(sale).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateSale
			}
			return err
		}
		return tx.Create(&entries).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return sale, entries, nil
}

// ListLedgerEntries returns entries newest first, filtered by the
// query parameters the dashboard uses: limit, role, status.
func (s *LedgerService) ListLedgerEntries(c *fiber.Ctx) error {
	query := s.DB.Model(&models.LedgerEntry{})

	if role := c.Query("role"); role != "" {
		if !models.ValidRole(models.RecipientRole(role)) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid role filter"})
		}
		query = query.Where("role = ?", role)
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidPayoutStatus(models.PayoutStatus(status)) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status filter"})
		}
		query = query.Where("payout_status = ?", status)
	}
	if recipientID := c.Query("recipient_id"); recipientID != "" {
		query = query.Where("recipient_id = ?", recipientID)
	}

	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid limit parameter"})
		}
		limit = l
	}

	var entries []models.LedgerEntry
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching ledger entries: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ledger entries"})
	}
	return c.JSON(entries)
}

// UpdatePayoutStatus records a payout status transition reported by the
// payout subsystem. Only the status moves — amounts are immutable.
func (s *LedgerService) UpdatePayoutStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid ledger entry ID"})
	}

	var req struct {
		Status models.PayoutStatus `json:"status" validate:"required,oneof=pending processing completed failed"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !models.ValidPayoutStatus(req.Status) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unknown payout status"})
	}

	entry, err := s.TransitionPayoutStatus(id, req.Status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ledger entry not found"})
		}
		if errors.Is(err, ErrValidation) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
		log.Printf("DB Error updating payout status for %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update payout status"})
	}

	return c.JSON(fiber.Map{"message": "Payout status updated", "entry": entry})
}

// TransitionPayoutStatus applies one state-machine step to an entry.
// Shared by the HTTP handler and the payout sync worker.
func (s *LedgerService) TransitionPayoutStatus(entryID string, next models.PayoutStatus) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", entryID).Error; err != nil {
			return err
		}
		if entry.PayoutStatus == next {
			return nil // idempotent replay of the same transition
		}
		if !entry.PayoutStatus.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot transition payout from %s to %s", ErrValidation, entry.PayoutStatus, next)
		}
		entry.PayoutStatus = next
		return tx.Model(&models.LedgerEntry{}).
			Where("id = ?", entryID).
			Update("payout_status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key value") ||
		strings.Contains(err.Error(), "SQLSTATE 23505") ||
		strings.Contains(err.Error(), "UNIQUE constraint failed"))
}
