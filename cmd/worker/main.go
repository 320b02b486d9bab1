package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/config"
	"github.com/influencer-campaigns/backend/internal/db"
	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/models"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories"
	"github.com/influencer-campaigns/backend/internal/services"
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

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, cfg.DBMaxConns, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	var publisher events.Publisher
	if rdb != nil {
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
	}

	store := repositories.NewPgStore(pool)
	settlements := services.NewSettlementService(store, publisher, log)
	payouts := services.NewPayoutService(store, nil, notify.Nop{}, publisher, rates, log)

	log.Info("worker started",
		zap.Duration("settlement_interval", cfg.SettlementInterval()),
		zap.Duration("stats_interval", cfg.StatsInterval))

	statsTicker := time.NewTicker(cfg.StatsInterval)
	defer statsTicker.Stop()

	// A nil channel never fires: settlement stays manual when the interval is 0.
	var settleC <-chan time.Time
	if cfg.SettlementInterval() > 0 {
		settleTicker := time.NewTicker(cfg.SettlementInterval())
		defer settleTicker.Stop()
		settleC = settleTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-settleC:
			runSettlement(ctx, settlements, log)
		case <-statsTicker.C:
			runStats(ctx, payouts, log)
		case <-sigCh:
			log.Info("shutting down worker")
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runSettlement(ctx context.Context, settlements *services.SettlementService, log *zap.Logger) {
	note := "Scheduled settlement " + time.Now().UTC().Format("2006-01-02 15:04")
	st, n, err := settlements.SettleUnclaimed(ctx, note, services.SystemActor)
	switch {
	case errors.Is(err, models.ErrNothingToSettle):
		log.Debug("no unclaimed revenue")
	case err != nil:
		log.Error("scheduled settlement failed", zap.Error(err))
	default:
		log.Info("scheduled settlement created",
			zap.String("settlement_id", st.ID.String()),
			zap.String("total", st.TotalAmount.StringFixed(2)),
			zap.Int("rows", n))
	}
}

func runStats(ctx context.Context, payouts *services.PayoutService, log *zap.Logger) {
	stats, err := payouts.DashboardStats(ctx)
	if err != nil {
		log.Error("failed to collect finance stats", zap.Error(err))
		return
	}
	log.Info("finance stats",
		zap.String("gmv", stats.GMV.StringFixed(2)),
		zap.String("revenue", stats.Revenue.StringFixed(2)),
		zap.String("unclaimed", stats.Unclaimed.StringFixed(2)),
		zap.Int("payouts", stats.Count),
		zap.Int("pending_payouts", stats.PendingCount),
		zap.String("pending_amount", stats.PendingAmount.StringFixed(2)))
}
