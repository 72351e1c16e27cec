package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"revenue-share-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// StreamLedgerSSE streams new ledger entries for the authenticated
// recipient as they are written, replacing the dashboard's old
// refetch-interval polling.
func (s *LedgerService) StreamLedgerSSE(c *fiber.Ctx) error {
	userID, _ := c.Locals("user_id").(string)
	if userID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "User ID not found in context"})
	}

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var cursor time.Time

		// Initialize cursor at the recipient's newest entry
		var latest models.LedgerEntry
		if err := s.DB.
			Where("recipient_id = ?", userID).
			Order("created_at DESC").
			First(&latest).Error; err == nil {
			cursor = latest.CreatedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for recipient %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for range ticker.C {
			var fresh []models.LedgerEntry
			if err := s.DB.
				Where("recipient_id = ? AND created_at > ?", userID, cursor).
				Order("created_at ASC").
				Find(&fresh).Error; err != nil {
				log.Printf("SSE query error for recipient %s: %v", userID, err)
				continue
			}

			if len(fresh) == 0 {
				// Keepalive so proxies don't drop the connection
				if _, err := w.WriteString(":\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
				continue
			}

			for _, entry := range fresh {
				payload, err := json.Marshal(entry)
				if err != nil {
					log.Printf("SSE marshal error: %v", err)
					continue
				}
				if _, err := fmt.Fprintf(w, "event: ledger_entry\ndata: %s\n\n", payload); err != nil {
					return // client gone
				}
				if entry.CreatedAt.After(cursor) {
					cursor = entry.CreatedAt
				}
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	})

	return nil
}
