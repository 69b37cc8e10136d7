package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Logger emits one zap entry per request. Short-code lookups dominate
// traffic, so successful redirects log at debug while API and webhook
// calls log at info.
func Logger(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.IP()),
		}
		if rid, ok := c.Locals(RequestIDKey).(string); ok {
			fields = append(fields, zap.String("request_id", rid))
		}

		switch {
		case err != nil:
			log.Error("request failed", append(fields, zap.Error(err))...)
		case isRedirectPath(c.Path()):
			log.Debug("redirect request", fields...)
		default:
			log.Info("request", fields...)
		}

		return err
	}
}

func isRedirectPath(path string) bool {
	return path != "/" && path != "/health" && !strings.HasPrefix(path, "/api/")
}
