// Package moderation implements the cautions-to-ban state machine and
// the public-chat rate limiter. It never caches moderation state
// between requests; every check reads the membership row fresh inside
// the caller's transaction, so a concurrent report or message always
// sees up to date counters.
package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/config"
	"chatserver/internal/database"
	"chatserver/internal/models"
)

func nullableNow(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

// BanCheck is the outcome of IsBanned.
type BanCheck struct {
	Banned  bool
	Warning string
}

// IsBanned reports whether userID is currently banned from chatID. An
// expired ban is lifted as a side effect of the check, so a banned
// user's next request after banned_till passes clears the ban without
// any background process having to do it.
func IsBanned(ctx context.Context, q database.Querier, chatID, userID int64) (BanCheck, error) {
	m, err := database.GetMembership(ctx, q, chatID, userID)
	if err != nil {
		return BanCheck{}, err
	}

	if !m.Banned {
		return BanCheck{}, nil
	}

	if m.BannedTill != nil && m.BannedTill.After(time.Now().UTC()) {
		return BanCheck{Banned: true, Warning: "You are banned!"}, nil
	}

	if err := database.ClearBan(ctx, q, chatID, userID); err != nil {
		return BanCheck{}, err
	}
	return BanCheck{}, nil
}

// CautionResult is the outcome of AddCaution.
type CautionResult struct {
	// AlreadyBanned is true when the reported user was already
	// serving a ban. The caller still responds with success in this
	// case, just with a different message.
	AlreadyBanned bool
}

// AddCaution applies one report against userID within chatID,
// escalating cautions 0->1->2 and turning the third report into a
// ban lasting banHours.
func AddCaution(ctx context.Context, q database.Querier, chatID, userID int64, banHours int) (CautionResult, error) {
	m, err := database.GetMembership(ctx, q, chatID, userID)
	if err != nil {
		return CautionResult{}, err
	}

	if m.Banned {
		return CautionResult{AlreadyBanned: true}, nil
	}

	if m.Cautions >= 2 {
		till := time.Now().UTC().Add(time.Duration(banHours) * time.Hour)
		if err := database.Ban(ctx, q, chatID, userID, till); err != nil {
			return CautionResult{}, err
		}
		return CautionResult{}, nil
	}

	if err := database.SetCautions(ctx, q, chatID, userID, m.Cautions+1); err != nil {
		return CautionResult{}, err
	}
	return CautionResult{}, nil
}

// RateLimitResult is the outcome of CheckPublicChatRateLimit.
type RateLimitResult struct {
	Allowed bool
	Warning string
}

// CheckPublicChatRateLimit enforces a fixed message-count window on
// the public chat: up to cfg.PublicChatMessageLimit messages per
// cfg.PublicChatWindowMin minutes. The window resets rather than
// slides: once it expires, the next message starts a brand new window
// instead of trimming the oldest message off a moving average.
func CheckPublicChatRateLimit(ctx context.Context, q database.Querier, user *models.User, cfg config.RateLimitConfig) (RateLimitResult, error) {
	now := time.Now().UTC()

	if user.MessagesInHourInPublicChat < cfg.PublicChatMessageLimit {
		if err := database.IncrementPublicChatRateLimit(ctx, q, user.ID, now); err != nil {
			return RateLimitResult{}, err
		}
		return RateLimitResult{Allowed: true}, nil
	}

	windowStart := now
	if user.StartChattingInPublicChat != nil {
		windowStart = *user.StartChattingInPublicChat
	}
	finishTime := windowStart.Add(time.Duration(cfg.PublicChatWindowMin) * time.Minute)

	if finishTime.After(now) {
		return RateLimitResult{
			Warning: fmt.Sprintf("message limit has been reached, please wait until %s",
				finishTime.Format("02.01.2006, 15:04:05")),
		}, nil
	}

	if err := database.ResetPublicChatRateLimit(ctx, q, user.ID, nullableNow(now)); err != nil {
		return RateLimitResult{}, err
	}
	return RateLimitResult{Allowed: true}, nil
}
