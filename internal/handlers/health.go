package handlers

import (
	"context"
	"encoding/json"
	"time"

	"chatserver/internal/config"
	"chatserver/internal/database"
	"chatserver/internal/services"
	"chatserver/internal/workers"
)

// HealthHandler reports operator-facing liveness for the database,
// cache and webhook notifier. It is a monitoring surface, not part of
// the chat protocol itself.
type HealthHandler struct {
	config      *config.Config
	db          *database.DB
	cache       services.CacheService
	webhook     *services.WebhookNotifier
	poolManager *workers.PoolManager
}

func NewHealthHandler(cfg *config.Config, db *database.DB, cache services.CacheService, webhook *services.WebhookNotifier, pm *workers.PoolManager) *HealthHandler {
	return &HealthHandler{config: cfg, db: db, cache: cache, webhook: webhook, poolManager: pm}
}

func (h *HealthHandler) Handle(ctx context.Context) (int, []byte, error) {
	dbStatus := "healthy"
	if err := h.db.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	cacheStatus := "healthy"
	if err := h.cache.Set(ctx, "health:ping", "1", time.Second); err != nil {
		cacheStatus = "unhealthy"
	}

	webhookStatus := "disabled"
	if h.webhook.Enabled() {
		webhookStatus = "configured"
	}

	body, err := json.Marshal(map[string]interface{}{
		"status":      "ok",
		"environment": h.config.Server.Environment,
		"database":    dbStatus,
		"cache":       cacheStatus,
		"webhook":     webhookStatus,
		"worker_pool": h.poolManager.Stats(),
		"timestamp":   time.Now(),
	})
	if err != nil {
		return 500, nil, err
	}
	return 200, body, nil
}
