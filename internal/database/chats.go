package database

import (
	"context"
	"database/sql"
	"fmt"

	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// GetPublicChat returns the singleton public chat Bootstrap creates
// at startup.
func GetPublicChat(ctx context.Context, q Querier) (*models.Chat, error) {
	var c models.Chat
	err := q.QueryRowContext(ctx, `
		SELECT id, name, type, created_at FROM chats WHERE type = 'public' AND name = $1
	`, models.PublicChatName).Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get public chat: %w", err)
	}
	return &c, nil
}

// FindPrivateChat returns the private chat whose exactly two members
// are userA and userB.
func FindPrivateChat(ctx context.Context, q Querier, userA, userB int64) (*models.Chat, error) {
	var c models.Chat
	err := q.QueryRowContext(ctx, `
		SELECT c.id, c.name, c.type, c.created_at
		FROM chats c
		JOIN chats_users cu1 ON cu1.chat_id = c.id AND cu1.user_id = $1
		JOIN chats_users cu2 ON cu2.chat_id = c.id AND cu2.user_id = $2
		WHERE c.type = 'private'
	`, userA, userB).Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.NotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find private chat: %w", err)
	}
	return &c, nil
}

// CreatePrivateChat creates a two-party chat and seeds both
// memberships. Private chats are created lazily, on first send, not
// in advance.
func CreatePrivateChat(ctx context.Context, q Querier, name string, userA, userB int64) (*models.Chat, error) {
	var c models.Chat
	err := q.QueryRowContext(ctx, `
		INSERT INTO chats (name, type) VALUES ($1, 'private')
		RETURNING id, name, type, created_at
	`, name).Scan(&c.ID, &c.Name, &c.Type, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create private chat: %w", err)
	}

	for _, uid := range []int64{userA, userB} {
		if err := CreateMembership(ctx, q, c.ID, uid); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

// ChatsForUser lists every chat a user belongs to along with that
// user's membership row, for /status.
func ChatsForUser(ctx context.Context, q Querier, userID int64) ([]ChatMembership, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.id, c.name, c.type, c.created_at,
		       cu.id, cu.last_connect, cu.cautions, cu.banned, cu.banned_till
		FROM chats c
		JOIN chats_users cu ON cu.chat_id = c.id
		WHERE cu.user_id = $1
		ORDER BY c.created_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats for user: %w", err)
	}
	defer rows.Close()

	var out []ChatMembership
	for rows.Next() {
		var cm ChatMembership
		var lastConnect, bannedTill sql.NullTime
		if err := rows.Scan(&cm.Chat.ID, &cm.Chat.Name, &cm.Chat.Type, &cm.Chat.CreatedAt,
			&cm.Membership.ID, &lastConnect, &cm.Membership.Cautions, &cm.Membership.Banned, &bannedTill); err != nil {
			return nil, fmt.Errorf("scan chat membership: %w", err)
		}
		cm.Membership.ChatID = cm.Chat.ID
		cm.Membership.UserID = userID
		cm.Membership.LastConnect = nullTimeToPtr(lastConnect)
		cm.Membership.BannedTill = nullTimeToPtr(bannedTill)
		out = append(out, cm)
	}
	return out, rows.Err()
}

// OtherMember returns the participant in a private chat who is not
// excludeUserID, used to render a private chat's display name in
// /status.
func OtherMember(ctx context.Context, q Querier, chatID, excludeUserID int64) (*models.User, error) {
	var u models.User
	err := q.QueryRowContext(ctx, `
		SELECT u.id, u.user_name, u.token, u.messages_in_hour_in_public_chat, u.start_chatting_in_public_chat, u.created_at
		FROM users u
		JOIN chats_users cu ON cu.user_id = u.id
		WHERE cu.chat_id = $1 AND u.id != $2
	`, chatID, excludeUserID).Scan(&u.ID, &u.UserName, &u.Token, &u.MessagesInHourInPublicChat, &u.StartChattingInPublicChat, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("find other chat member: %w", err)
	}
	return &u, nil
}

// ChatMembership pairs a chat with the requesting user's row in its
// chats_users join, the shape /status needs per chat.
type ChatMembership struct {
	Chat       models.Chat
	Membership models.Membership
}
