// File: cmd/app/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mat-kinh-affiliate/internal/config"
	pg "mat-kinh-affiliate/internal/infra/db/postgres"
	"mat-kinh-affiliate/internal/infra/logging"
	"mat-kinh-affiliate/internal/infra/metrics"
	"mat-kinh-affiliate/internal/infra/pos"
	red "mat-kinh-affiliate/internal/infra/redis"
	"mat-kinh-affiliate/internal/infra/sched"
	"mat-kinh-affiliate/internal/infra/web"
	"mat-kinh-affiliate/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}
	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	txManager := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	campaignRepo := pg.NewPostgresCampaignRepo(pool)
	assignmentRepo := pg.NewPostgresAssignmentRepo(pool)
	voucherRepo := pg.NewPostgresVoucherRepo(pool)
	tierRepo := pg.NewPostgresTierRepo(pool)
	statsRepo := pg.NewPostgresPartnerStatsRepo(pool)

	// ---- POS gateway ----
	tokens := pos.NewTokenSource(cfg.POS, logger)
	posClient := pos.NewClient(cfg.POS)
	gateway := pos.NewGateway(posClient, tokens, logger)

	// ---- Use cases ----
	campaignUC := usecase.NewCampaignUseCase(campaignRepo, assignmentRepo, logger)
	voucherUC := usecase.NewVoucherUseCase(voucherRepo, campaignUC, gateway, locker, cfg.Redis.LockTTL, logger)
	tierUC := usecase.NewTierUseCase(tierRepo, statsRepo)

	// ---- HTTP API ----
	auth := web.NewAuthManager(cfg.Web.JWTSecret, !cfg.Runtime.Dev, "", cfg.Web.SessionTTL)
	srv := web.NewServer(campaignUC, voucherUC, tierUC, auth, cfg.Web.AdminKey, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Web.Port),
		Handler: srv.Router(),
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Campaign sync worker ----
	if cfg.Sync.Interval > 0 && cfg.POS.BaseURL != "" {
		worker := sched.NewCampaignSyncWorker(cfg.Sync.Interval, gateway, campaignRepo, txManager, logger)
		go func() { _ = worker.Run(ctx) }()
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}
