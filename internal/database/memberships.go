package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// CreateMembership seeds a chats_users row for a brand-new
// participant, cautions/banned defaulting to zero/false.
func CreateMembership(ctx context.Context, q Querier, chatID, userID int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO chats_users (chat_id, user_id) VALUES ($1, $2)
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("create membership: %w", err)
	}
	return nil
}

// GetMembership fetches a chat's per-user moderation state: read
// position, caution count, and ban status.
func GetMembership(ctx context.Context, q Querier, chatID, userID int64) (*models.Membership, error) {
	var m models.Membership
	var lastConnect, bannedTill sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT id, chat_id, user_id, last_connect, cautions, banned, banned_till
		FROM chats_users WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID).Scan(&m.ID, &m.ChatID, &m.UserID, &lastConnect, &m.Cautions, &m.Banned, &bannedTill)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get membership: %w", err)
	}
	m.LastConnect = nullTimeToPtr(lastConnect)
	m.BannedTill = nullTimeToPtr(bannedTill)
	return &m, nil
}

// UpdateLastConnect stamps the read position /connect advances on
// every successful call.
func UpdateLastConnect(ctx context.Context, q Querier, chatID, userID int64, t time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE chats_users SET last_connect = $3 WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID, t)
	if err != nil {
		return fmt.Errorf("update last connect: %w", err)
	}
	return nil
}

// SetCautions writes a new caution count without touching ban state.
func SetCautions(ctx context.Context, q Querier, chatID, userID int64, cautions int) error {
	_, err := q.ExecContext(ctx, `
		UPDATE chats_users SET cautions = $3 WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID, cautions)
	if err != nil {
		return fmt.Errorf("set cautions: %w", err)
	}
	return nil
}

// Ban marks a membership banned until till, the 2->banned transition.
func Ban(ctx context.Context, q Querier, chatID, userID int64, till time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE chats_users SET banned = TRUE, banned_till = $3 WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID, till)
	if err != nil {
		return fmt.Errorf("ban membership: %w", err)
	}
	return nil
}

// ClearBan lifts an expired ban and resets cautions to zero. Callers
// only invoke this once they have already confirmed banned_till has
// passed.
func ClearBan(ctx context.Context, q Querier, chatID, userID int64) error {
	_, err := q.ExecContext(ctx, `
		UPDATE chats_users SET banned = FALSE, banned_till = NULL, cautions = 0
		WHERE chat_id = $1 AND user_id = $2
	`, chatID, userID)
	if err != nil {
		return fmt.Errorf("clear ban: %w", err)
	}
	return nil
}

// CountExpiredBans reports how many memberships are marked banned
// with an elapsed banned_till. Telemetry only, read by the worker
// pool's sweep job; it never clears anything itself.
func CountExpiredBans(ctx context.Context, q Querier) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chats_users WHERE banned = TRUE AND banned_till < NOW()
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired bans: %w", err)
	}
	return n, nil
}

// CountMembers reports how many users belong to a chat, for
// /status's users_number field.
func CountMembers(ctx context.Context, q Querier, chatID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM chats_users WHERE chat_id = $1`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}
	return n, nil
}
