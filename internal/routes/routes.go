package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lamont703/XRWebsites-sub000/internal/asset"
	"github.com/lamont703/XRWebsites-sub000/internal/config"
	"github.com/lamont703/XRWebsites-sub000/internal/funding"
	"github.com/lamont703/XRWebsites-sub000/internal/ledger"
	"github.com/lamont703/XRWebsites-sub000/internal/middleware"
	"github.com/lamont703/XRWebsites-sub000/internal/minting"
	"github.com/lamont703/XRWebsites-sub000/internal/notification"
	"github.com/lamont703/XRWebsites-sub000/internal/payments"
	"github.com/lamont703/XRWebsites-sub000/internal/store"
	"github.com/lamont703/XRWebsites-sub000/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Document store
	var docs store.Store
	if d.DB != nil {
		pgStore := store.NewPostgres(d.DB)
		if err := pgStore.EnsureSchema(context.Background()); err != nil {
			return fmt.Errorf("ensure document schema: %w", err)
		}
		docs = pgStore
	} else {
		docs = store.NewMemory()
	}

	// Services and handlers
	walletSvc := wallet.NewService(wallet.NewRepository(docs), d.Cfg.AllowOverdraft)
	recorder := ledger.NewRecorder(docs)
	registry := asset.NewRegistry(docs, walletSvc)
	notifier := notification.NewLoggerNotifier(d.Logger)
	paymentSvc := payments.NewService(walletSvc, recorder, registry, minting.StaticMinter{}, notifier)
	fundingSvc := funding.NewService(walletSvc, recorder, d.Cache, d.Logger)

	var gateway funding.Gateway
	if d.Cfg.WebhookSecret != "" {
		gateway = funding.NewHMACGateway(d.Cfg.WebhookSecret)
	} else {
		gateway = funding.StaticGateway{}
	}

	walletHandler := wallet.NewHandler(walletSvc)
	assetHandler := asset.NewHandler(registry)
	paymentHandler := payments.NewHandler(paymentSvc, d.Cfg.ListingDays)
	fundingHandler := funding.NewHandler(gateway, fundingSvc)

	RegisterHealthRoutes(app, d)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public webhook intake, verified by signature rather than JWT.
	RegisterWebhookRoutes(api, fundingHandler)

	protected := api.Group("", middleware.JWTAuth(d.Cfg.JWTSecret))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterWalletRoutes(protected, walletHandler, paymentHandler)
	RegisterAssetRoutes(protected, assetHandler, paymentHandler)

	return nil
}
