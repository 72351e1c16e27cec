// workers/recipient_sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"revenue-share-system/models"
	"revenue-share-system/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MirroredRecipientFromProfile matches the JSON response from the profile service.
type MirroredRecipientFromProfile struct {
	ExternalID  string    `json:"external_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DisplayName *string   `json:"display_name,omitempty"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	IsSuspended bool      `json:"is_suspended"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GetRecipientChangesResponse is the top-level structure of the profile service response.
type GetRecipientChangesResponse struct {
	Users []MirroredRecipientFromProfile `json:"users"`
}

// RecipientSyncWorker keeps the local recipient mirror fresh so ledger
// listings and exports can show usernames without a cross-service call.
type RecipientSyncWorker struct {
	db           *gorm.DB
	interval     time.Duration
	baseURL      string // e.g., "http://localhost:8500"
	endpointPath string // e.g., "/api/v1/public/profiles"
	serviceToken string
	httpClient   *http.Client
}

func NewRecipientSyncWorker(db *gorm.DB, profileServiceBaseURL, endpointPath, serviceToken string) *RecipientSyncWorker {
	return &RecipientSyncWorker{
		db:           db,
		interval:     1 * time.Minute,
		baseURL:      profileServiceBaseURL,
		endpointPath: endpointPath,
		serviceToken: serviceToken,
		httpClient:   utils.HTTPClient,
	}
}

func (w *RecipientSyncWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Recipient Sync Worker (profile-service → recipient_mirrors)…")
	go w.run(ctx)
}

func (w *RecipientSyncWorker) run(ctx context.Context) {
	// Initial sync backfills from the beginning of time
	if err := w.syncBatch(ctx, time.Time{}); err != nil {
		log.Printf("⚠️ Initial recipient sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			lastSyncTime := w.getLastSyncTime()
			if err := w.syncBatch(ctx, lastSyncTime); err != nil {
				log.Printf("❌ Recipient sync batch failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ Recipient Sync Worker stopped")
			return
		}
	}
}

// getLastSyncTime finds the most recent UpdatedAt from the local mirror table.
func (w *RecipientSyncWorker) getLastSyncTime() time.Time {
	var lastTime time.Time
	err := w.db.Raw("SELECT MAX(updated_at) FROM recipient_mirrors WHERE deleted_at IS NULL").Scan(&lastTime).Error
	if err != nil || lastTime.IsZero() {
		return time.Unix(0, 0)
	}
	return lastTime
}

// syncBatch fetches recipient changes and upserts them into the mirror table.
func (w *RecipientSyncWorker) syncBatch(ctx context.Context, since time.Time) error {
	sinceStr := since.UTC().Format(time.RFC3339)

	base, err := url.Parse(w.baseURL)
	if err != nil {
		return fmt.Errorf("invalid profile service URL '%s': %w", w.baseURL, err)
	}
	endpoint := base.JoinPath(w.endpointPath)
	q := endpoint.Query()
	q.Set("since", sinceStr)
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Service-Token", w.serviceToken)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("profile service returned status %d: %s", resp.StatusCode, string(body))
	}

	var changes GetRecipientChangesResponse
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return fmt.Errorf("failed to decode profile service response: %w", err)
	}

	if len(changes.Users) == 0 {
		return nil
	}

	mirrors := make([]models.RecipientMirror, 0, len(changes.Users))
	for _, u := range changes.Users {
		if u.ExternalID == "" {
			continue
		}
		mirrors = append(mirrors, models.RecipientMirror{
			ID:             uuid.NewString(),
			ExternalUserID: u.ExternalID,
			Username:       u.Username,
			Email:          u.Email,
			DisplayName:    u.DisplayName,
			AvatarURL:      u.AvatarURL,
			IsSuspended:    u.IsSuspended,
		})
	}

	err = w.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "email", "display_name", "avatar_url", "is_suspended", "updated_at",
		}),
	}).Create(&mirrors).Error
	if err != nil {
		return fmt.Errorf("failed to upsert recipient mirrors: %w", err)
	}

	log.Printf("[SYNC] ✅ Upserted %d recipient mirrors (since=%s)", len(mirrors), sinceStr)
	return nil
}
