// Package handlers implements the chat protocol's endpoints: token
// issuance, connecting to a chat, sending messages, commenting,
// reporting, and status. Each handler matches router.HandlerFunc and
// runs its mutations inside a single transaction, so a request either
// fully applies or leaves no trace.
package handlers

import (
	"chatserver/internal/config"
	"chatserver/internal/database"
	"chatserver/internal/services"
	"chatserver/internal/workers"
)

type Handlers struct {
	db      *database.DB
	cfg     *config.Config
	webhook *services.WebhookNotifier
	pool    *workers.PoolManager
}

func New(db *database.DB, cfg *config.Config, webhook *services.WebhookNotifier, pool *workers.PoolManager) *Handlers {
	return &Handlers{db: db, cfg: cfg, webhook: webhook, pool: pool}
}
