// revenue-share-system/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"revenue-share-system/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware validates `token` from the query string via the
// auth service. EventSource cannot set headers, so the ledger stream
// authenticates with a query token instead of the gateway's X-User-*
// context.
//
// Usage:
//
//	app.Get("/s/ledger/stream", middleware.SSEAuthMiddleware(authClient), ledgerService.StreamLedgerSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(string(c.Request().URI().QueryArgs().Peek("token")))

		if accessToken == "" {
			log.Printf("[SSEAuth] ❌ Missing token query param for %s", c.Path())
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed for token (len=%d): %v", len(accessToken), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		// Attach to Fiber context (like UserContextMiddleware, but from query)
		c.Locals("user_id", resp.UserID)
		c.Locals("user_roles", resp.Roles)

		log.Printf("[SSEAuth] ✅ Authenticated user %s for %s", resp.UserID, c.Path())
		return c.Next()
	}
}
