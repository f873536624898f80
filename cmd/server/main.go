package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"claimflow/internal/claim"
	claimhandler "claimflow/internal/claim/handler"
	claimmetrics "claimflow/internal/claim/metrics"
	"claimflow/internal/claim/submit"
	httpapi "claimflow/internal/http"
	"claimflow/internal/notify"
	"claimflow/internal/platform/config"
	"claimflow/internal/platform/httpserver"
	"claimflow/internal/platform/logger"
	"claimflow/internal/platform/redis"
	"claimflow/internal/policy"
	policycache "claimflow/internal/policy/cache"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.BotToken == "" || cfg.ReceiptChatID == "" {
		log.Error("BOT_TOKEN and RECEIPT_GROUP_ID are required")
		os.Exit(1)
	}

	rdb, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
		log.Info("policy cache enabled", "ttl", cfg.PolicyCacheTTL.String())
	}

	var repo policy.Repository = policy.NewClient(cfg.PolicyAPIURL, log)
	repo = policycache.New(repo, rdb, cfg.PolicyCacheTTL, log)

	notifier := notify.NewTelegram(cfg.BotToken, log)
	coordinator := submit.NewCoordinator(notifier, repo, cfg.ReceiptChatID, log)

	service := claim.NewService(claim.NewInMemoryStore(), repo, coordinator, claimmetrics.New(), log)
	router := httpapi.NewRouter(claimhandler.New(service, log), rdb)

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
