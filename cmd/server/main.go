package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/zhoufan91/ZipLink/config"
	appanalytics "github.com/zhoufan91/ZipLink/internal/app/analytics"
	appcache "github.com/zhoufan91/ZipLink/internal/app/cache"
	appmodel "github.com/zhoufan91/ZipLink/internal/app/model"
	apprepository "github.com/zhoufan91/ZipLink/internal/app/repository"
	appserver "github.com/zhoufan91/ZipLink/internal/app/server"
	appservice "github.com/zhoufan91/ZipLink/internal/app/service"
	"github.com/zhoufan91/ZipLink/internal/app/shortcode"
	httputil "github.com/zhoufan91/ZipLink/internal/http/util"
	"github.com/zhoufan91/ZipLink/internal/infra/logger"
	infraNATS "github.com/zhoufan91/ZipLink/internal/infra/nats"
	infraPostgres "github.com/zhoufan91/ZipLink/internal/infra/postgres"
	infraPrometheus "github.com/zhoufan91/ZipLink/internal/infra/prometheus"
	infraRedis "github.com/zhoufan91/ZipLink/internal/infra/redis"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	isDev := os.Getenv("APP_ENV") != "production"
	log := logger.MustInit(logger.Config{
		Development: isDev,
		Level:       os.Getenv("LOG_LEVEL"),
	})
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Configuration loaded successfully",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("base_url", cfg.App.BaseURL),
		zap.String("webhook_url", cfg.App.WebhookURL),
		zap.String("postgres_host", cfg.Postgres.Host),
		zap.Int("postgres_port", cfg.Postgres.Port),
		zap.String("postgres_db", cfg.Postgres.Database),
		zap.String("redis_host", cfg.Redis.Host),
		zap.Int("redis_port", cfg.Redis.Port),
		zap.String("nats_host", cfg.NATS.Host),
		zap.Int("nats_port", cfg.NATS.Port),
	)

	gormDB, err := infraPostgres.NewGorm(cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to open GORM connection", zap.Error(err))
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatal("Failed to access underlying SQL DB", zap.Error(err))
	}
	defer sqlDB.Close()

	if err := infraPostgres.AutoMigrate(ctx, gormDB, &appmodel.Link{}, &appmodel.Click{}); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	pool, err := infraPostgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal("Failed to connect to Postgres", zap.Error(err))
	}
	defer pool.Close()
	log.Info("Connected to Postgres successfully")

	redisClient, err := infraRedis.NewClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	log.Info("Connected to Redis successfully")

	natsConn, js, err := infraNATS.Connect(cfg.NATS)
	if err != nil {
		log.Fatal("Failed to connect to NATS", zap.Error(err))
	}
	defer natsConn.Drain()
	log.Info("Connected to NATS successfully", zap.Bool("jetstream_ready", js != nil))

	if !isDev {
		promServer := infraPrometheus.NewServer(cfg.Prometheus)
		go func() {
			log.Info("Starting Prometheus metrics server",
				zap.Int("port", cfg.Prometheus.Port))
			if err := promServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Prometheus metrics server stopped unexpectedly", zap.Error(err))
			}
		}()
		defer func() {
			if err := promServer.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Warn("Failed to close Prometheus server", zap.Error(err))
			}
		}()
	} else {
		log.Info("Skipping Prometheus metrics server in development mode")
	}

	linkRepo := apprepository.NewLinkRepository(gormDB)
	clickRepo := apprepository.NewClickRepository(gormDB)
	analyticsRepo := apprepository.NewAnalyticsRepository(pool)
	linkCache := appcache.NewRedisLinkCache(redisClient)

	codes, err := linkRepo.ListCodes(ctx)
	if err != nil {
		log.Fatal("Failed to load existing short codes", zap.Error(err))
	}
	codeIndex := shortcode.NewIndex(uint(len(codes)) * 2)
	codeIndex.Seed(codes)
	log.Info("Seeded short code index", zap.Int("codes", len(codes)))

	webhookURL := cfg.App.WebhookURL
	if webhookURL == "" {
		webhookURL = fmt.Sprintf("%s/api/webhooks/clicks", cfg.App.BaseURL)
	}

	signer := httputil.NewSigner([]byte(cfg.App.WebhookSecret))
	publisher := appservice.NewClickPublisher(js, webhookURL)

	dispatcher := appservice.NewClickDispatcher(js, log, signer)
	if err := dispatcher.Start(); err != nil {
		log.Fatal("Failed to start click dispatcher", zap.Error(err))
	}
	defer dispatcher.Stop()

	resolver := appservice.NewResolver(appservice.ResolverDeps{
		Logger:      log,
		Cache:       linkCache,
		Links:       linkRepo,
		Queue:       publisher,
		Bots:        appanalytics.NewBotDetector(),
		Extractor:   appanalytics.NewExtractor(appanalytics.GeoOverride{Country: cfg.App.DevCountry, City: cfg.App.DevCity}),
		FallbackURL: cfg.App.BaseURL,
	})

	linkService := appservice.NewLinkService(appservice.LinkServiceDeps{
		Logger:    log,
		Links:     linkRepo,
		Clicks:    clickRepo,
		Cache:     linkCache,
		Generator: shortcode.NewGenerator(),
		Index:     codeIndex,
	})

	server := appserver.New(appserver.Dependencies{
		Logger:                  log,
		Redis:                   redisClient,
		Resolver:                resolver,
		LinkService:             linkService,
		Analytics:               analyticsRepo,
		Clicks:                  clickRepo,
		Signer:                  signer,
		BaseURL:                 cfg.App.BaseURL,
		RequireWebhookSignature: cfg.App.IsProduction(),
	})

	if err := server.Listen(fmt.Sprintf(":%d", cfg.App.Port)); err != nil {
		log.Fatal("Fiber server exited", zap.Error(err))
	}
}
