package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OudonePKL/chaet-backend1/internal/app/registry"
	"github.com/OudonePKL/chaet-backend1/internal/app/server"
	"github.com/OudonePKL/chaet-backend1/internal/app/worker"
	"github.com/OudonePKL/chaet-backend1/internal/config"
	"github.com/OudonePKL/chaet-backend1/internal/core/services"
	"github.com/OudonePKL/chaet-backend1/internal/platform/logger"
	"github.com/OudonePKL/chaet-backend1/internal/platform/telemetry"
	"github.com/OudonePKL/chaet-backend1/internal/plugins/postgres"
	redisPlugin "github.com/OudonePKL/chaet-backend1/internal/plugins/redis"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	defer func() {
		log.Info("flushing telemetry...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown failed", "err", err)
		}
	}()

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	defer pdb.Close()
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	defer rdb.Close()
	log.Info("redis connected")

	// Adapters
	roomRepo := postgres.NewRoomRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	ephemeral := redisPlugin.NewRedisEphemeralStore(rdb)
	notifyQueue := redisPlugin.NewRedisNotificationQueue(log, rdb)

	// Core services
	hub := registry.NewRegistry(log)
	tokenSvc := services.NewTokenService(cfg.Secret)
	notifySvc := services.NewNotifyService(log, notifyQueue, hub)
	presenceSvc := services.NewPresenceService(log, ephemeral, hub, cfg.Session.PresenceTTL, cfg.Session.TypingTTL)
	deliverySvc := services.NewDeliveryService(log, hub, msgRepo, roomRepo, notifySvc)
	sessionSvc := services.NewSessionService(
		log, tokenSvc, roomRepo, msgRepo, hub, deliverySvc, presenceSvc,
		cfg.Session.HistoryLimit, cfg.Session.HandshakeTimeout,
	)

	// Notification worker
	wrkr := worker.NewNotificationWorker(log, notifyQueue, notifySvc, cfg.Worker.NotifyGroup)
	go func() {
		if err := wrkr.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("notification worker stopped", "err", err)
		}
	}()

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, sessionSvc, tokenSvc, hub)
	if err := srv.Start(ctx); err != nil {
		log.Error("server stopped", "err", err)
	}
}
