package database

import (
	"context"
	"fmt"
	"time"

	"chatserver/internal/models"

	"github.com/lib/pq"
)

// InsertComment records a reply to messageID authored by authorID.
func InsertComment(ctx context.Context, q Querier, messageID, authorID int64, text string) (*models.Comment, error) {
	var c models.Comment
	err := q.QueryRowContext(ctx, `
		INSERT INTO comments (text, author_id, message_id) VALUES ($1, $2, $3)
		RETURNING id, text, created_at, author_id, message_id
	`, text, authorID, messageID).Scan(&c.ID, &c.Text, &c.CreatedAt, &c.AuthorID, &c.MessageID)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

// CommentsByMessage batches comment lookups for a set of message IDs
// into a single query, avoiding one round trip per rendered message
// when /connect returns a page of history.
func CommentsByMessage(ctx context.Context, q Querier, messageIDs []int64) (map[int64][]CommentWithAuthor, error) {
	out := make(map[int64][]CommentWithAuthor)
	if len(messageIDs) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.text, c.created_at, c.message_id, u.user_name
		FROM comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.message_id = ANY($1)
		ORDER BY c.created_at ASC
	`, pq.Array(messageIDs))
	if err != nil {
		return nil, fmt.Errorf("query comments by message: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c CommentWithAuthor
		var messageID int64
		if err := rows.Scan(&c.ID, &c.Text, &c.CreatedAt, &messageID, &c.Author); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out[messageID] = append(out[messageID], c)
	}
	return out, rows.Err()
}

// CommentWithAuthor is a comment joined against its author's display
// name, the shape /connect renders into message_comments.
type CommentWithAuthor struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	Author    string
}
