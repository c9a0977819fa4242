// Package workers runs moderation webhook deliveries off the request
// path and a periodic ban-expiry telemetry sweep.
package workers

import (
	"context"
	"log/slog"
	"time"

	"github.com/alitto/pond"
)

type PoolManager struct {
	WebhookPool *pond.WorkerPool
	SweepPool   *pond.WorkerPool
}

type PoolConfig struct {
	WebhookWorkers int
}

func NewPoolManager(cfg PoolConfig) *PoolManager {
	workers := cfg.WebhookWorkers
	if workers == 0 {
		workers = 4
	}
	return &PoolManager{
		WebhookPool: pond.New(workers, workers*2, pond.MinWorkers(1), pond.IdleTimeout(30*time.Second)),
		SweepPool:   pond.New(1, 1, pond.MinWorkers(1), pond.IdleTimeout(30*time.Second)),
	}
}

// SubmitWebhook fires a moderation webhook delivery asynchronously so
// /report never blocks the caller on outbound network I/O.
func (pm *PoolManager) SubmitWebhook(task func()) {
	pm.WebhookPool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("webhook delivery task panicked", "error", r)
			}
		}()
		task()
	})
}

// RunBanExpirySweep runs sweep every interval until ctx is cancelled.
// The sweep is purely observational: it logs how many memberships are
// serving an expired ban so operators can see backlog, but it never
// clears a ban itself. Ban expiry is only ever cleared lazily, inside
// moderation.IsBanned, at the moment a request actually checks it.
func (pm *PoolManager) RunBanExpirySweep(ctx context.Context, interval time.Duration, sweep func(context.Context) (int, error)) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pm.SweepPool.Submit(func() {
					n, err := sweep(ctx)
					if err != nil {
						slog.Error("ban expiry sweep failed", "error", err)
						return
					}
					if n > 0 {
						slog.Info("ban expiry sweep", "expired_pending_clear", n)
					}
				})
			}
		}
	}()
}

func (pm *PoolManager) Stats() map[string]interface{} {
	return map[string]interface{}{
		"webhook_pool": map[string]interface{}{
			"running_workers": pm.WebhookPool.RunningWorkers(),
			"submitted_tasks": pm.WebhookPool.SubmittedTasks(),
			"failed_tasks":    pm.WebhookPool.FailedTasks(),
		},
	}
}

func (pm *PoolManager) Shutdown() {
	slog.Info("shutting down worker pools")
	pm.WebhookPool.StopAndWait()
	pm.SweepPool.StopAndWait()
}
