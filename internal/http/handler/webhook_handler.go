package handler

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/zhoufan91/ZipLink/internal/app/analytics"
	"github.com/zhoufan91/ZipLink/internal/app/model"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	"github.com/zhoufan91/ZipLink/internal/http/util"
	"go.uber.org/zap"
)

// WebhookDeps groups dependencies required by the webhook consumer.
type WebhookDeps struct {
	Logger *zap.Logger
	Clicks repository.ClickRepository
	Signer *util.Signer

	// RequireSignature is on outside development so only the dispatch queue
	// can feed the consumer.
	RequireSignature bool
}

// WebhookHandler receives queued click records and persists them.
type WebhookHandler struct {
	logger           *zap.Logger
	clicks           repository.ClickRepository
	signer           *util.Signer
	requireSignature bool
}

// NewWebhookHandler creates a webhook handler with the provided dependencies.
func NewWebhookHandler(deps WebhookDeps) *WebhookHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{
		logger:           logger,
		clicks:           deps.Clicks,
		signer:           deps.Signer,
		requireSignature: deps.RequireSignature,
	}
}

// Register wires webhook routes onto the provided router.
func (h *WebhookHandler) Register(router fiber.Router) {
	router.Post("/api/webhooks/clicks", h.ReceiveClick)
	router.Get("/api/webhooks/clicks", h.Health)
}

// Health confirms the consumer endpoint is reachable.
func (h *WebhookHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"message": "click webhook endpoint is active",
	})
}

// ReceiveClick handles POST /api/webhooks/clicks.
func (h *WebhookHandler) ReceiveClick(c *fiber.Ctx) error {
	body := c.Body()

	if h.requireSignature {
		if err := h.signer.Verify(body, c.Get(util.SignatureHeader)); err != nil {
			h.logger.Warn("rejected unsigned webhook delivery", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid signature",
			})
		}
	}

	var record analytics.ClickRecord
	if err := json.Unmarshal(body, &record); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid click record body",
		})
	}

	if record.ShortCode == "" || record.ClickedAt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing required fields: shortCode or clickedAt",
		})
	}

	clickedAt, err := time.Parse(time.RFC3339, record.ClickedAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "clickedAt must be an RFC 3339 timestamp",
		})
	}

	click := &model.Click{
		ShortCode: record.ShortCode,
		ClickedAt: clickedAt,
		Country:   record.Country,
		City:      record.City,
		Device:    record.Device,
		Browser:   record.Browser,
		OS:        record.OS,
		Referrer:  record.Referrer,
		IPHash:    record.IPHash,
	}
	if err := h.clicks.Create(requestContext(c), click); err != nil {
		h.logger.Error("failed to persist click",
			zap.String("code", record.ShortCode),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to persist click",
		})
	}

	h.logger.Debug("click persisted",
		zap.String("code", record.ShortCode),
		zap.String("country", record.Country),
		zap.String("device", record.Device),
	)
	return c.JSON(fiber.Map{"success": true})
}
