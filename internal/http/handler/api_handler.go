package handler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"
	"github.com/zhoufan91/ZipLink/internal/app/model"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	"github.com/zhoufan91/ZipLink/internal/app/service"
	"github.com/zhoufan91/ZipLink/internal/app/shortcode"
	"go.uber.org/zap"
)

// APIDeps groups dependencies required by API handlers.
type APIDeps struct {
	Logger      *zap.Logger
	LinkService service.LinkService
	Analytics   repository.AnalyticsRepository
	BaseURL     string
}

// APIHandler implements the management API endpoints.
type APIHandler struct {
	logger      *zap.Logger
	linkService service.LinkService
	analytics   repository.AnalyticsRepository
	baseURL     string
}

// NewAPIHandler creates an API handler with the provided dependencies.
func NewAPIHandler(deps APIDeps) *APIHandler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		logger:      logger,
		linkService: deps.LinkService,
		analytics:   deps.Analytics,
		baseURL:     deps.BaseURL,
	}
}

// Register wires API routes onto the provided router.
func (h *APIHandler) Register(router fiber.Router) {
	api := router.Group("/api")
	{
		links := api.Group("/links")
		{
			links.Post("/", h.CreateLink)
			links.Get("/", h.ListLinks)
			links.Get("/:code", h.GetLink)
			links.Delete("/:code", h.DeleteLink)
		}
		api.Get("/analytics/:code", h.LinkAnalytics)
	}
}

// CreateLinkRequest represents the request body for creating a link.
type CreateLinkRequest struct {
	URL string `json:"url"`
}

// LinkResponse represents a link in API responses.
type LinkResponse struct {
	ShortCode  string    `json:"short_code"`
	ShortURL   string    `json:"short_url"`
	URL        string    `json:"url"`
	ClickCount int64     `json:"click_count,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *APIHandler) linkResponse(link *model.Link, clicks int64) LinkResponse {
	return LinkResponse{
		ShortCode:  link.ShortCode,
		ShortURL:   fmt.Sprintf("%s/%s", h.baseURL, link.ShortCode),
		URL:        link.URL,
		ClickCount: clicks,
		CreatedAt:  link.CreatedAt,
	}
}

// CreateLink handles POST /api/links
func (h *APIHandler) CreateLink(c *fiber.Ctx) error {
	var req CreateLinkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	link, created, err := h.linkService.CreateLink(requestContext(c), req.URL)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidURL):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": service.ErrInvalidURL.Error(),
			})
		case errors.Is(err, shortcode.ErrGenerationExhausted):
			h.logger.Error("short code space exhausted retries", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "could not allocate a short code, try again",
			})
		default:
			h.logger.Error("failed to create link", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create link",
			})
		}
	}

	status := fiber.StatusCreated
	if !created {
		// Existing binding for this URL; return it instead of a duplicate.
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(h.linkResponse(link, 0))
}

// ListLinks handles GET /api/links
func (h *APIHandler) ListLinks(c *fiber.Ctx) error {
	limit := 20
	offset := 0
	if parsed := c.QueryInt("limit"); parsed > 0 && parsed <= 100 {
		limit = parsed
	}
	if parsed := c.QueryInt("offset"); parsed > 0 {
		offset = parsed
	}

	links, err := h.linkService.ListLinks(requestContext(c), limit, offset)
	if err != nil {
		h.logger.Error("failed to list links", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list links",
		})
	}

	return c.JSON(lo.Map(links, func(item service.LinkWithClicks, _ int) LinkResponse {
		return h.linkResponse(&item.Link, item.ClickCount)
	}))
}

// GetLink handles GET /api/links/:code
func (h *APIHandler) GetLink(c *fiber.Ctx) error {
	code := c.Params("code")

	link, err := h.linkService.GetLink(requestContext(c), code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to load link", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load link",
		})
	}

	return c.JSON(h.linkResponse(link, 0))
}

// DeleteLink handles DELETE /api/links/:code
func (h *APIHandler) DeleteLink(c *fiber.Ctx) error {
	code := c.Params("code")

	if err := h.linkService.DeleteLink(requestContext(c), code); err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to delete link", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete link",
		})
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("link %s deleted", code),
	})
}

// LinkAnalytics handles GET /api/analytics/:code
func (h *APIHandler) LinkAnalytics(c *fiber.Ctx) error {
	code := c.Params("code")
	ctx := requestContext(c)

	link, err := h.linkService.GetLink(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrLinkNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "link not found",
			})
		}
		h.logger.Error("failed to load link", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load link",
		})
	}

	stats, err := h.analytics.LinkAnalytics(ctx, code)
	if err != nil {
		h.logger.Error("failed to aggregate analytics", zap.String("code", code), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to aggregate analytics",
		})
	}

	return c.JSON(fiber.Map{
		"short_code": link.ShortCode,
		"url":        link.URL,
		"created_at": link.CreatedAt,
		"analytics":  stats,
	})
}

func requestContext(c *fiber.Ctx) context.Context {
	if ctx := c.UserContext(); ctx != nil {
		return ctx
	}
	return context.Background()
}
