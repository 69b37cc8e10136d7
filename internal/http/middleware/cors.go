package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/zhoufan91/ZipLink/internal/http/util"
)

// CORS lets dashboard frontends on other origins call the management
// API. The signature header is allowed so browser-based queue tooling
// can exercise the click webhook.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Access-Control-Allow-Origin", "*")
		c.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		c.Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+util.SignatureHeader)
		c.Set("Access-Control-Expose-Headers", "Content-Type, X-RateLimit-Limit, X-RateLimit-Remaining")
		c.Set("Access-Control-Max-Age", "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
