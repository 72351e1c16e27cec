// workers/payout_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"revenue-share-system/models"
	"revenue-share-system/services"
	"revenue-share-system/utils"

	"gorm.io/gorm"
)

// PayoutSyncClient polls the external payout service for status changes
// and applies them to the ledger through the payout state machine. This
// service records statuses only — it never executes payouts itself.
type PayoutSyncClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	Ledger     *services.LedgerService
}

func NewPayoutSyncClient(db *gorm.DB) *PayoutSyncClient {
	baseURL := os.Getenv("PAYOUT_SERVICE_URL")
	if baseURL == "" {
		log.Fatal("PAYOUT_SERVICE_URL environment variable is required")
	}
	token := os.Getenv("LEDGER_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("LEDGER_SERVICE_TOKEN environment variable is required for payout sync")
	}

	return &PayoutSyncClient{
		BaseURL:    baseURL,
		Token:      token,
		Ledger:     services.NewLedgerService(db),
		HTTPClient: utils.HTTPClient,
	}
}

// PayoutStatusUpdate is one status change reported by the payout service.
type PayoutStatusUpdate struct {
	LedgerEntryID string              `json:"ledger_entry_id"`
	Status        models.PayoutStatus `json:"status"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// GetStatusUpdates fetches payout status changes since the given time.
func (c *PayoutSyncClient) GetStatusUpdates(ctx context.Context, since time.Time) ([]PayoutStatusUpdate, error) {
	since = since.UTC()

	u, err := url.Parse(fmt.Sprintf("%s/api/v1/payouts/updates", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	q := u.Query()
	q.Set("since", since.Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payout service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("payout service returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Updates []PayoutStatusUpdate `json:"updates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode payout service response: %w", err)
	}

	return response.Updates, nil
}

// PollPayouts applies remote status transitions on an interval.
// Invalid transitions (e.g. a late pending→completed replay) are logged
// and skipped — the ledger's state machine stays authoritative.
func PollPayouts(ctx context.Context, client *PayoutSyncClient, pollInterval time.Duration) {
	log.Println("Starting payout status polling…")

	lastSync := time.Now().Add(-pollInterval)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			updates, err := client.GetStatusUpdates(ctx, lastSync)
			if err != nil {
				log.Printf("❌ Payout poll failed: %v", err)
				continue
			}
			lastSync = time.Now()

			applied := 0
			for _, u := range updates {
				if !models.ValidPayoutStatus(u.Status) {
					log.Printf("⚠️ Payout service sent unknown status %q for entry %s", u.Status, u.LedgerEntryID)
					continue
				}
				if _, err := client.Ledger.TransitionPayoutStatus(u.LedgerEntryID, u.Status); err != nil {
					log.Printf("⚠️ Skipped payout transition for entry %s → %s: %v", u.LedgerEntryID, u.Status, err)
					continue
				}
				applied++
			}
			if len(updates) > 0 {
				log.Printf("[PAYOUT] ✅ Applied %d/%d status updates", applied, len(updates))
			}
		case <-ctx.Done():
			log.Println("⏹️ Payout status polling stopped")
			return
		}
	}
}
