// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// OperatorContextMiddleware extracts the operator identity set by the
// Gateway. Manual corrective actions (sync, set-status, clearing inventory)
// must be attributable, so those paths reject requests without it.
func OperatorContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		opID := c.Get("X-Operator-ID")

		path := c.Path()
		needsOperator := c.Method() != fiber.MethodGet &&
			(strings.Contains(path, "/reconcile/") ||
				strings.Contains(path, "/inventory/set-status") ||
				strings.HasSuffix(path, "/inventory"))
		if needsOperator && opID == "" {
			log.Printf("❌ [OPERATOR_CTX] X-Operator-ID required but missing on: %s", path)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Operator-ID — corrective actions must be attributable",
			})
		}

		if opID != "" {
			c.Locals("operator_id", opID)
		}
		return c.Next()
	}
}
