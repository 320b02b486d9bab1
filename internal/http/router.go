package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/config"
	"github.com/influencer-campaigns/backend/internal/http/handlers"
	"github.com/influencer-campaigns/backend/internal/middleware"
	"github.com/influencer-campaigns/backend/internal/rbac"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	userHandler *handlers.UserHandler,
	applicationHandler *handlers.ApplicationHandler,
	financeHandler *handlers.FinanceHandler,
	walletHandler *handlers.WalletHandler,
	campaignHandler *handlers.CampaignHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Transfer slips
	app.Static(cfg.SlipPublicURL, cfg.SlipStorageDir)

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Meta (public)
	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/statuses", metaHandler.GetStatuses)
	api.Get("/meta/stages", metaHandler.GetStages)

	// Campaigns (public; drafts hidden)
	api.Get("/campaigns", campaignHandler.ListCampaigns)
	api.Get("/campaigns/:id", campaignHandler.GetCampaign)

	protected := api.Group("", middleware.AuthMiddleware(cfg.JWTSecret, log))

	protected.Get("/me", userHandler.GetMe)
	protected.Get("/me/wallet", walletHandler.GetMyWallet)

	// Participant workflow
	protected.Post("/campaigns/:id/apply", middleware.Require(rbac.PermApply), applicationHandler.Apply)
	protected.Get("/applications/my", applicationHandler.MyApplications)
	protected.Get("/applications/:id", applicationHandler.GetApplication)
	protected.Get("/applications/:id/submissions", applicationHandler.GetSubmissions)
	protected.Get("/applications/:id/history", applicationHandler.GetHistory)
	protected.Get("/applications/:id/ledger", middleware.Require(rbac.PermViewOwnLedger), applicationHandler.GetLedger)
	protected.Post("/applications/:id/start", middleware.Require(rbac.PermSubmitWork), applicationHandler.StartWork)
	protected.Post("/applications/:id/submissions/:stage", middleware.Require(rbac.PermSubmitWork), applicationHandler.SubmitWork)

	admin := protected.Group("/admin", middleware.AdminMiddleware())

	// Admin workflow
	apps := admin.Group("/applications", middleware.Require(rbac.PermReviewWork))
	apps.Get("", applicationHandler.ListApplications)
	apps.Post("/:id/review", applicationHandler.Review)
	apps.Post("/:id/start", applicationHandler.StartWork)
	apps.Post("/:id/stages/:stage/approve", applicationHandler.ApproveStage)
	apps.Post("/:id/stages/:stage/revision", applicationHandler.RequestRevision)
	apps.Put("/:id/notes", applicationHandler.UpdateNotes)
	apps.Delete("/:id", applicationHandler.Delete)
	apps.Post("/:id/payout", middleware.Require(rbac.PermConfirmPayout), financeHandler.ConfirmPayout)

	// Finance
	finance := admin.Group("/finance", middleware.Require(rbac.PermViewFinance))
	finance.Get("/transactions", financeHandler.ListTransactions)
	finance.Get("/pending-payouts", financeHandler.PendingPayouts)
	finance.Get("/dashboard", financeHandler.Dashboard)
	finance.Get("/preview", financeHandler.Preview)
	finance.Get("/internal-revenue", financeHandler.InternalRevenue)
	finance.Post("/internal-revenue/settle", middleware.Require(rbac.PermSettleRevenue), financeHandler.Settle)
	finance.Post("/payouts/bulk", middleware.Require(rbac.PermConfirmPayout), financeHandler.ConfirmPayoutsBulk)

	// Wallets
	wallets := admin.Group("/wallets", middleware.Require(rbac.PermManageWallets))
	wallets.Get("/:userId", walletHandler.GetWallet)
	wallets.Post("/:userId/freeze", walletHandler.Freeze)
	wallets.Post("/:userId/unfreeze", walletHandler.Unfreeze)

	// Campaign admin
	campaigns := admin.Group("/campaigns", middleware.Require(rbac.PermManageCampaigns))
	campaigns.Post("", campaignHandler.CreateCampaign)
	campaigns.Get("", campaignHandler.ListCampaigns)
	campaigns.Get("/:id", campaignHandler.GetCampaign)
	campaigns.Put("/:id", campaignHandler.UpdateCampaign)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
