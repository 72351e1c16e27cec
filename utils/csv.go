// utils/csv.go
package utils

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"revenue-share-system/models"

	"github.com/gosimple/slug"
)

// ledgerCSVHeader is the column order the finance dashboard expects.
var ledgerCSVHeader = []string{"Date", "Recipient", "Role", "Amount", "Percentage", "Currency", "ContentType", "Title", "Status"}

// BuildLedgerCSV renders ledger entries as CSV. names maps recipient
// ids to display usernames; ids without a mirror row fall back to the
// raw recipient id so no row is ever dropped.
func BuildLedgerCSV(entries []models.LedgerEntry, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(ledgerCSVHeader); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, e := range entries {
		recipient := e.RecipientID
		if name, ok := names[e.RecipientID]; ok && name != "" {
			recipient = name
		}
		record := []string{
			e.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			recipient,
			string(e.Role),
			e.ShareAmount.StringFixed(2),
			e.SharePercentage.StringFixed(2),
			e.Currency,
			e.ContentType,
			e.ContentTitle,
			string(e.PayoutStatus),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ExportObjectKey builds the R2 key for an archived export, slugging
// the label so arbitrary titles produce safe object keys.
func ExportObjectKey(label string, t time.Time) string {
	return fmt.Sprintf("exports/%s-%s.csv", slug.Make(label), t.Format("20060102-150405"))
}

// ExportFileName is the attachment filename for a ledger download.
func ExportFileName(t time.Time) string {
	return fmt.Sprintf("ledger-export-%s.csv", t.Format("20060102"))
}
