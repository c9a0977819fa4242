package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// CreateUser inserts a new identity with its bearer token.
func CreateUser(ctx context.Context, q Querier, userName, token string) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		INSERT INTO users (user_name, token)
		VALUES ($1, $2)
		RETURNING id, user_name, token, messages_in_hour_in_public_chat, start_chatting_in_public_chat, created_at
	`, userName, token).Scan(&u.ID, &u.UserName, &u.Token, &u.MessagesInHourInPublicChat, &u.StartChattingInPublicChat, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// GetUserByToken is the lookup the auth gate falls back to on a cache
// miss.
func GetUserByToken(ctx context.Context, q Querier, token string) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT id, user_name, token, messages_in_hour_in_public_chat, start_chatting_in_public_chat, created_at
		FROM users WHERE token = $1
	`, token).Scan(&u.ID, &u.UserName, &u.Token, &u.MessagesInHourInPublicChat, &u.StartChattingInPublicChat, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.Unauthorized)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by token: %w", err)
	}
	return &u, nil
}

// GetUserByID re-reads a user's full row fresh from the store. The
// auth gate's cache only ever holds immutable identity fields, so any
// caller that needs rate-limit counters, which are never cached, must
// go through this instead of trusting the User handed to it.
func GetUserByID(ctx context.Context, q Querier, id int64) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT id, user_name, token, messages_in_hour_in_public_chat, start_chatting_in_public_chat, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.UserName, &u.Token, &u.MessagesInHourInPublicChat, &u.StartChattingInPublicChat, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// GetUserByName looks a user up by its chosen display name, used by
// /connect, /send and /report to resolve chat_with, send_to and
// report_on.
func GetUserByName(ctx context.Context, q Querier, userName string) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT id, user_name, token, messages_in_hour_in_public_chat, start_chatting_in_public_chat, created_at
		FROM users WHERE user_name = $1
	`, userName).Scan(&u.ID, &u.UserName, &u.Token, &u.MessagesInHourInPublicChat, &u.StartChattingInPublicChat, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return &u, nil
}

// TokenExists reports whether a freshly generated token already
// collides with a stored one, so /get-token can retry generation
// instead of ever handing out a duplicate.
func TokenExists(ctx context.Context, q Querier, token string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check token existence: %w", err)
	}
	return exists, nil
}

// UserNameExists backs /get-token's check for an existing user_name,
// which it answers with an info message instead of a new token.
func UserNameExists(ctx context.Context, q Querier, userName string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE user_name = $1)`, userName).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user name existence: %w", err)
	}
	return exists, nil
}

// ResetPublicChatRateLimit sets the window counter to 1 and restamps
// its start, the transition taken once the previous window has
// expired.
func ResetPublicChatRateLimit(ctx context.Context, q Querier, userID int64, windowStart sql.NullTime) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users SET messages_in_hour_in_public_chat = 1, start_chatting_in_public_chat = $2
		WHERE id = $1
	`, userID, windowStart)
	if err != nil {
		return fmt.Errorf("reset public chat rate limit: %w", err)
	}
	return nil
}

// IncrementPublicChatRateLimit bumps the counter within an
// already-open window. If the window hasn't started yet (a user who
// has never hit the limit before has a null start time), this stamps
// now as its start so the window actually has something to expire
// against once the limit is reached.
func IncrementPublicChatRateLimit(ctx context.Context, q Querier, userID int64, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		UPDATE users SET
			messages_in_hour_in_public_chat = messages_in_hour_in_public_chat + 1,
			start_chatting_in_public_chat = COALESCE(start_chatting_in_public_chat, $2)
		WHERE id = $1
	`, userID, now)
	if err != nil {
		return fmt.Errorf("increment public chat rate limit: %w", err)
	}
	return nil
}
