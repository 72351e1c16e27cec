package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"revenue-share-system/models"

	"github.com/shopspring/decimal"
)

func TestFinalizeSaleRejectsReplay(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	seedAgreement(t, db, "contract-replay")
	svc := NewLedgerService(db)

	input := FinalizeSaleInput{
		SaleID:       "ext-sale-001",
		ContractID:   "contract-replay",
		Amount:       decimal.NewFromInt(1000),
		Currency:     "USD",
		ContentType:  "course",
		ContentID:    "course-1",
		ContentTitle: "Cardiology Basics",
		Recipients:   defaultRecipients(),
	}

	sale, entries, err := svc.finalizeSale(context.Background(), input)
	if err != nil {
		t.Fatalf("first finalize: %v", err)
	}
	if sale.ExternalSaleID != "ext-sale-001" {
		t.Errorf("expected external sale id ext-sale-001, got %s", sale.ExternalSaleID)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 ledger entries, got %d", len(entries))
	}

	if _, _, err := svc.finalizeSale(context.Background(), input); !errors.Is(err, ErrDuplicateSale) {
		t.Fatalf("expected ErrDuplicateSale on replay, got %v", err)
	}

	// The replay must not leave any extra rows behind.
	var saleCount, entryCount int64
	if err := db.Model(&models.Sale{}).Count(&saleCount).Error; err != nil {
		t.Fatalf("count sales: %v", err)
	}
	if err := db.Model(&models.LedgerEntry{}).Count(&entryCount).Error; err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if saleCount != 1 || entryCount != 3 {
		t.Errorf("expected 1 sale and 3 entries after replay, got %d and %d", saleCount, entryCount)
	}
}

func TestFinalizeSalePersistsResolvedShares(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	seedAgreement(t, db, "contract-shares")
	svc := NewLedgerService(db)

	_, entries, err := svc.finalizeSale(context.Background(), FinalizeSaleInput{
		SaleID:     "ext-sale-010",
		ContractID: "contract-shares",
		Amount:     decimal.NewFromInt(1000),
		Currency:   "USD",
		Recipients: defaultRecipients(),
	})
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}

	want := map[string]decimal.Decimal{
		"user-owner":  decimal.NewFromInt(100),
		"user-admin":  decimal.NewFromInt(200),
		"user-editor": decimal.NewFromInt(700),
	}
	for _, entry := range entries {
		expected, ok := want[entry.RecipientID]
		if !ok {
			t.Fatalf("unexpected recipient %s", entry.RecipientID)
		}
		if !entry.ShareAmount.Equal(expected) {
			t.Errorf("recipient %s: expected share %s, got %s",
				entry.RecipientID, expected.String(), entry.ShareAmount.String())
		}
		if entry.PayoutStatus != models.PayoutStatusPending {
			t.Errorf("recipient %s: expected pending status, got %s", entry.RecipientID, entry.PayoutStatus)
		}
	}
}

func TestFinalizeSaleWithoutActiveAgreement(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	svc := NewLedgerService(db)

	_, _, err := svc.finalizeSale(context.Background(), FinalizeSaleInput{
		SaleID:     "ext-sale-020",
		ContractID: "contract-missing",
		Amount:     decimal.NewFromInt(100),
		Currency:   "USD",
		Recipients: defaultRecipients(),
	})
	if !errors.Is(err, ErrNoActiveAgreement) {
		t.Fatalf("expected ErrNoActiveAgreement, got %v", err)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("ERROR: duplicate key value violates unique constraint \"idx_tier_scope\" (SQLSTATE 23505)"), true},
		{fmt.Errorf("UNIQUE constraint failed: sales.external_sale_id"), true},
		{fmt.Errorf("connection refused"), false},
	}
	for _, tc := range cases {
		if got := isUniqueViolation(tc.err); got != tc.want {
			t.Errorf("isUniqueViolation(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
