// handlers/analytics_routes.go
package handlers

import (
	"revenue-share-system/middleware"
	"revenue-share-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupAnalyticsRoutes(app *fiber.App, analyticsService *services.AnalyticsService) {
	group := app.Group("/analytics", middleware.UserContextMiddleware())

	group.Get("/", analyticsService.GetAnalytics)
}
