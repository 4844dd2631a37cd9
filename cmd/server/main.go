package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/jetvision/broker-backend/internal/avinode"
	"github.com/jetvision/broker-backend/internal/config"
	"github.com/jetvision/broker-backend/internal/db"
	httpapi "github.com/jetvision/broker-backend/internal/http"
	"github.com/jetvision/broker-backend/internal/metrics"
	"github.com/jetvision/broker-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "broker-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	client, err := avinode.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build marketplace client")
	}

	m := metrics.New("broker")
	sync := &service.SyncService{
		Store:   store,
		API:     client,
		Logger:  logger,
		Metrics: m,
	}
	webhooks := &service.WebhookService{
		Store:   store,
		Sync:    sync,
		Logger:  logger,
		Metrics: m,
	}
	transitions := &service.TransitionService{
		Store:  store,
		API:    client,
		Logger: logger,
	}

	pollCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	if cfg.SyncInterval > 0 {
		go runPoller(pollCtx, sync, cfg.SyncInterval, logger)
	} else {
		logger.Info().Msg("background sync disabled")
	}

	router := httpapi.Router(cfg, store, client, sync, webhooks, transitions, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopPoller()
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

// runPoller is the safety net behind webhooks: every interval it re-syncs all
// requests still waiting on marketplace activity.
func runPoller(ctx context.Context, sync *service.SyncService, interval time.Duration, logger zerolog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	logger.Info().Dur("interval", interval).Msg("background sync started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync.SyncActiveRequests(ctx)
		}
	}
}
