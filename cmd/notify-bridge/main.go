package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/influencer-campaigns/backend/internal/config"
	"github.com/influencer-campaigns/backend/internal/db"
	"github.com/influencer-campaigns/backend/internal/events"
	"github.com/influencer-campaigns/backend/internal/notify"
	"github.com/influencer-campaigns/backend/internal/repositories"
)

// Notify bridge subscribes to application events in Redis and pushes
// status messages to participants over the LINE Messaging API.

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}
	if cfg.LineChannelToken == "" {
		log.Fatal("LINE_CHANNEL_TOKEN is required for notify-bridge")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, 4, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil || rdb == nil {
		log.Fatal("notify-bridge needs redis", zap.Error(err))
	}
	defer rdb.Close()

	line := notify.NewLineClient(cfg.LineAPIURL, cfg.LineChannelToken, log)
	forwarder := notify.NewLineForwarder(repositories.NewPgStore(pool), line, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	err = subscriber.Subscribe(ctx, events.StreamApplication, func(event events.Event) {
		hctx, hcancel := context.WithTimeout(ctx, 15*time.Second)
		defer hcancel()

		sent, err := forwarder.Handle(hctx, event)
		if err != nil {
			log.Warn("failed to forward notification",
				zap.String("type", event.Type),
				zap.String("application_id", event.String("application_id")),
				zap.Error(err))
			return
		}
		if sent {
			log.Info("notification sent",
				zap.String("application_id", event.String("application_id")),
				zap.String("status", event.String("new_status")))
		}
	})
	if err != nil {
		log.Fatal("failed to subscribe", zap.Error(err))
	}

	log.Info("notify-bridge started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down notify-bridge")
	cancel()
}
