package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/service"
	"go.uber.org/zap"
)

// RedirectDeps groups dependencies required by the redirect handler.
type RedirectDeps struct {
	Logger   *zap.Logger
	Resolver *service.Resolver
}

// RedirectHandler is the thin HTTP skin over the resolver: it adapts the
// fiber request into the resolver's framework-free contract and writes the
// outcome back.
type RedirectHandler struct {
	logger   *zap.Logger
	resolver *service.Resolver
}

// NewRedirectHandler creates a redirect handler with the provided dependencies.
func NewRedirectHandler(deps RedirectDeps) *RedirectHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedirectHandler{
		logger:   logger,
		resolver: deps.Resolver,
	}
}

// Register wires redirect routes onto the provided router. The catch-all
// code route must be registered after every other route.
func (h *RedirectHandler) Register(router fiber.Router) {
	router.Get("/", h.Health)
	router.Get("/health", h.Health)
	router.Get("/:code", h.Resolve)
}

// Health is a simple root endpoint so we know the service is running.
func (h *RedirectHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "ZipLink",
		"status":  "ok",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Resolve handles GET /:code.
func (h *RedirectHandler) Resolve(c *fiber.Ctx) error {
	code := c.Params("code")

	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	// Extraction happens synchronously inside Resolve, so handing it a view
	// of the live request headers is safe.
	header := analytics.HeaderFunc(func(name string) string {
		return c.Get(name)
	})

	outcome := h.resolver.Resolve(ctx, code, header)

	if outcome.CacheControl != "" {
		c.Set(fiber.HeaderCacheControl, outcome.CacheControl)
	}
	h.logger.Debug("redirecting",
		zap.String("code", code),
		zap.Int("status", outcome.Status),
		zap.String("target", outcome.Location),
	)
	return c.Redirect(outcome.Location, outcome.Status)
}
