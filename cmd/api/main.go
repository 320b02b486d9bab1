package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/config"
	"github.com/influencer-campaigns/backend/internal/db"
	"github.com/influencer-campaigns/backend/internal/events"
	apphttp "github.com/influencer-campaigns/backend/internal/http"
	"github.com/influencer-campaigns/backend/internal/http/dto"
	"github.com/influencer-campaigns/backend/internal/http/handlers"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories"
	"github.com/influencer-campaigns/backend/internal/services"
	"github.com/influencer-campaigns/backend/internal/storage"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	rates, _ := cfg.Rates()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run migrations
	if cfg.RunMigrations {
		if err := db.Migrate(cfg.PostgresDSN, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.DBMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	if rdb != nil {
		defer rdb.Close()
	}

	store := repositories.NewPgStore(pool)

	docs, err := storage.NewLocalStore(cfg.SlipStorageDir, cfg.SlipPublicURL, cfg.MaxSlipBytes, log)
	if err != nil {
		log.Fatal("failed to prepare slip storage", zap.Error(err))
	}

	// Events
	var (
		publisher  events.Publisher
		subscriber events.Subscriber
		notifier   notify.Notifier = notify.Nop{}
	)
	if rdb != nil {
		pub := events.NewRedisPublisher(rdb, log)
		publisher = pub
		subscriber = events.NewRedisSubscriber(rdb, log)
		notifier = notify.NewEventNotifier(pub, log)
	}

	// Services
	workflow := services.NewWorkflowService(store, notifier, log)
	payouts := services.NewPayoutService(store, docs, notifier, publisher, rates, log)
	settlements := services.NewSettlementService(store, publisher, log)
	walletService := services.NewWalletService(store, log)
	campaignService := services.NewCampaignService(store, log)

	// Handlers
	userHandler := handlers.NewUserHandler(store.Users(), log)
	applicationHandler := handlers.NewApplicationHandler(workflow, payouts, log)
	financeHandler := handlers.NewFinanceHandler(payouts, settlements, log)
	walletHandler := handlers.NewWalletHandler(walletService, log)
	campaignHandler := handlers.NewCampaignHandler(campaignService, log)
	wsHub := handlers.NewWSHub(cfg.JWTSecret, subscriber, log)

	if subscriber != nil {
		wsHub.Start(ctx)
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.MaxSlipBytes) + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
			}
			return c.Status(code).JSON(dto.ErrorResponse{
				Error:     err.Error(),
				RequestID: middleware.GetRequestID(c),
			})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, userHandler, applicationHandler, financeHandler, walletHandler, campaignHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
