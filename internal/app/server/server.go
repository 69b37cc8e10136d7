package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/zhoufan91/ZipLink/internal/app/repository"
	"github.com/zhoufan91/ZipLink/internal/app/service"
	inthttp "github.com/zhoufan91/ZipLink/internal/http/handler"
	"github.com/zhoufan91/ZipLink/internal/http/middleware"
	"github.com/zhoufan91/ZipLink/internal/http/util"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs to register routes.
type Dependencies struct {
	Logger      *zap.Logger
	Redis       *redis.Client
	Resolver    *service.Resolver
	LinkService service.LinkService
	Analytics   repository.AnalyticsRepository
	Clicks      repository.ClickRepository
	Signer      *util.Signer
	BaseURL     string

	// RequireWebhookSignature gates the click webhook outside development.
	RequireWebhookSignature bool
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerRoutes() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	// Queue deliveries to the webhook are exempt; throttling our own
	// dispatcher would only delay click persistence.
	if s.deps.Redis != nil {
		cfg := middleware.DefaultRateLimitConfig()
		s.app.Use("/api/links", middleware.RateLimit(s.deps.Redis, cfg, "links", s.deps.Logger))
		s.app.Use("/api/analytics", middleware.RateLimit(s.deps.Redis, cfg, "analytics", s.deps.Logger))
	}

	inthttp.NewWebhookHandler(inthttp.WebhookDeps{
		Logger:           s.deps.Logger,
		Clicks:           s.deps.Clicks,
		Signer:           s.deps.Signer,
		RequireSignature: s.deps.RequireWebhookSignature,
	}).Register(s.app)

	inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:      s.deps.Logger,
		LinkService: s.deps.LinkService,
		Analytics:   s.deps.Analytics,
		BaseURL:     s.deps.BaseURL,
	}).Register(s.app)

	// The redirect catch-all goes last so /api and /health win first.
	inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:   s.deps.Logger,
		Resolver: s.deps.Resolver,
	}).Register(s.app)
}
