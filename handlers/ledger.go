// handlers/ledger.go
package handlers

import (
	"revenue-share-system/middleware"
	"revenue-share-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLedgerRoutes(app *fiber.App, ledgerService *services.LedgerService, authClient *services.AuthServiceClient) {
	// Finalize is called service-to-service by the sales pipeline; the
	// gateway token check in main already gates it.
	app.Post("/sales/finalize", ledgerService.FinalizeSale)

	group := app.Group("/ledger", middleware.UserContextMiddleware())
	group.Get("/", ledgerService.ListLedgerEntries)
	group.Get("/export", ledgerService.ExportLedgerCSV)
	group.Patch("/:id/status", ledgerService.UpdatePayoutStatus)

	// SSE stream authenticates via query token (EventSource can't set headers)
	app.Get("/s/ledger/stream", middleware.SSEAuthMiddleware(authClient), ledgerService.StreamLedgerSSE)
}
