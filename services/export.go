// services/export.go
package services

import (
	"fmt"
	"log"
	"time"

	"revenue-share-system/models"
	"revenue-share-system/utils"

	"github.com/gofiber/fiber/v2"
)

// ExportLedgerCSV streams the full ledger as a CSV download and
// archives a copy to R2 so finance has an immutable record of what was
// exported. The archive is best effort — a failed upload does not fail
// the download.
func (s *LedgerService) ExportLedgerCSV(c *fiber.Ctx) error {
	var entries []models.LedgerEntry
	if err := s.DB.Order("created_at DESC").Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching ledger for export: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ledger entries"})
	}

	names := s.usernamesFor(entries)
	data, err := utils.BuildLedgerCSV(entries, names)
	if err != nil {
		log.Printf("CSV build failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to build CSV"})
	}

	key := utils.ExportObjectKey("ledger export", time.Now().UTC())
	if archiveURL, err := utils.UploadBytesToR2(key, "text/csv", data); err != nil {
		log.Printf("⚠️ Failed to archive ledger export to R2: %v", err)
	} else {
		c.Set("X-Archive-URL", archiveURL)
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, utils.ExportFileName(time.Now().UTC())))
	return c.Send(data)
}

// usernamesFor maps recipient ids to mirrored usernames for display.
func (s *LedgerService) usernamesFor(entries []models.LedgerEntry) map[string]string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.RecipientID]; ok {
			continue
		}
		seen[e.RecipientID] = struct{}{}
		ids = append(ids, e.RecipientID)
	}
	if len(ids) == 0 {
		return nil
	}

	var mirrors []models.RecipientMirror
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&mirrors).Error; err != nil {
		log.Printf("DB Error resolving recipient names for export: %v", err)
		return nil
	}
	names := make(map[string]string, len(mirrors))
	for _, m := range mirrors {
		names[m.ExternalUserID] = m.Username
	}
	return names
}
