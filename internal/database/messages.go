package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// GetMessage fetches a single message by ID, used to validate
// /comment's message_id and to find which chat it belongs to.
func GetMessage(ctx context.Context, q Querier, id int64) (*models.Message, error) {
	var m models.Message
	err := q.QueryRowContext(ctx, `
		SELECT m.id, m.text, m.pub_date, m.author_id, m.chat_id, u.user_name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.id = $1
	`, id).Scan(&m.ID, &m.Text, &m.PubDate, &m.AuthorID, &m.ChatID, &m.AuthorName)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return &m, nil
}

// InsertMessage records a post in chatID authored by authorID,
// returning the full row so handlers never need a follow-up read.
func InsertMessage(ctx context.Context, q Querier, chatID, authorID int64, text string) (*models.Message, error) {
	var m models.Message
	err := q.QueryRowContext(ctx, `
		INSERT INTO messages (text, author_id, chat_id) VALUES ($1, $2, $3)
		RETURNING id, text, pub_date, author_id, chat_id
	`, text, authorID, chatID).Scan(&m.ID, &m.Text, &m.PubDate, &m.AuthorID, &m.ChatID)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &m, nil
}

// MessagesBefore returns up to limit messages from chatID with
// pub_date strictly before cutoff, newest first. This is /connect's
// "messages" history slice.
func MessagesBefore(ctx context.Context, q Querier, chatID int64, cutoff time.Time, limit int) ([]models.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, m.text, m.pub_date, m.author_id, m.chat_id, u.user_name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.chat_id = $1 AND m.pub_date < $2
		ORDER BY m.pub_date DESC
		LIMIT $3
	`, chatID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages before cutoff: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MessagesSince returns every message posted in chatID strictly after
// a user's last_connect, oldest first. This is /connect's
// "unread_messages".
func MessagesSince(ctx context.Context, q Querier, chatID int64, since time.Time) ([]models.Message, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.id, m.text, m.pub_date, m.author_id, m.chat_id, u.user_name
		FROM messages m
		JOIN users u ON u.id = m.author_id
		WHERE m.chat_id = $1 AND m.pub_date > $2
		ORDER BY m.pub_date ASC
	`, chatID, since)
	if err != nil {
		return nil, fmt.Errorf("query messages since: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}) ([]models.Message, error) {
	var out []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Text, &m.PubDate, &m.AuthorID, &m.ChatID, &m.AuthorName); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages reports how many messages a chat holds, for
// /status's messages_number field.
func CountMessages(ctx context.Context, q Querier, chatID int64) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE chat_id = $1`, chatID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}
