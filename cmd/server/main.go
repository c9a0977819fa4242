// Command server is the chat service's entry point. It loads
// configuration, wires the domain store, cache, worker pool and
// webhook notifier, registers the protocol endpoints, and serves
// HTTP/1.1 over the connection handler until a shutdown signal
// arrives.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chatserver/internal/auth"
	"chatserver/internal/config"
	"chatserver/internal/database"
	"chatserver/internal/handlers"
	"chatserver/internal/models"
	"chatserver/internal/router"
	"chatserver/internal/services"
	"chatserver/internal/transport"
	"chatserver/internal/workers"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}

	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Server.Environment == "development" {
		opts.Level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, opts)))

	poolManager := workers.NewPoolManager(workers.PoolConfig{WebhookWorkers: 4})

	cache := setupCache(cfg.Redis)

	slog.Info("connecting to database")
	db, err := database.NewConnection(database.Config{
		URL:             cfg.Database.URL,
		MaxConnections:  cfg.Database.MaxConnections,
		MaxIdleTime:     cfg.Database.MaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		log.Fatal("database connection required: ", err)
	}
	defer db.Close()

	bootstrapCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.Bootstrap(bootstrapCtx); err != nil {
		slog.Error("bootstrap failed", "error", err)
	}
	cancel()

	authService := auth.NewService(db, cache)
	webhookNotifier := services.NewWebhookNotifier(cfg.Webhook)

	appCtx, appCancel := context.WithCancel(context.Background())
	poolManager.RunBanExpirySweep(appCtx, 5*time.Minute, func(ctx context.Context) (int, error) {
		return database.CountExpiredBans(ctx, db)
	})

	h := handlers.New(db, cfg, webhookNotifier, poolManager)
	healthHandler := handlers.NewHealthHandler(cfg, db, cache, webhookNotifier, poolManager)

	rtr := router.New(authService)
	rtr.Register("POST", "/get-token", false, h.GetToken)
	rtr.Register("POST", "/connect", true, h.Connect)
	rtr.Register("POST", "/send", true, h.Send)
	rtr.Register("POST", "/comment", true, h.Comment)
	rtr.Register("POST", "/report", true, h.Report)
	rtr.Register("GET", "/status", true, h.Status)
	rtr.Register("GET", "/healthz", false, func(ctx context.Context, _ *models.User, _ []byte) (int, []byte, error) {
		return healthHandler.Handle(ctx)
	})

	connHandler := &transport.ConnHandler{
		Router:       rtr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}
	listener := transport.NewListener(connHandler)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig

		slog.Info("shutting down")
		appCancel()
		poolManager.Shutdown()
		if err := cache.Close(); err != nil {
			slog.Error("cache close error", "error", err)
		}
		listener.Shutdown(10 * time.Second)
		if err := db.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
		slog.Info("shutdown complete")
		os.Exit(0)
	}()

	slog.Info("starting chat server", "host", cfg.Server.Host, "port", cfg.Server.Port, "environment", cfg.Server.Environment)
	if err := listener.ListenAndServe(appCtx, cfg.Server.Host, cfg.Server.Port); err != nil {
		poolManager.Shutdown()
		log.Fatal(err)
	}
}

func setupCache(cfg config.RedisConfig) services.CacheService {
	addr := strings.TrimPrefix(cfg.URL, "redis://")

	client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis connection failed, falling back to memory cache", "error", err)
		client.Close()
		return services.NewMemoryCache()
	}
	slog.Info("redis connection established", "addr", addr)
	return services.NewRedisCache(client)
}
