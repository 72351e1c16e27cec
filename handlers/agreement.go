// handlers/agreement.go
package handlers

import (
	"revenue-share-system/middleware"
	"revenue-share-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAgreementRoutes(app *fiber.App, agreementService *services.AgreementService, tierService *services.TierService) {
	// 🔐 All agreement routes require user context from the Gateway
	group := app.Group("/agreements", middleware.UserContextMiddleware())

	group.Get("/", agreementService.ListAgreements)
	group.Post("/", agreementService.CreateAgreement)
	group.Patch("/:id/deactivate", agreementService.DeactivateAgreement)

	group.Get("/:id/tiers", tierService.ListTiers)
	group.Put("/:id/tiers", tierService.UpsertTier)
}
