// Package models holds the domain entities: User, Chat, Membership
// (the chats_users join), Message and Comment.
package models

import "time"

// ChatType distinguishes the one singleton public chat from the
// lazily-created two-party private chats.
type ChatType string

const (
	ChatPublic  ChatType = "public"
	ChatPrivate ChatType = "private"
)

// PublicChatName is the fixed name of the singleton public chat.
const PublicChatName = "public_chat"

// User is a chat identity: a unique name and a unique bearer token,
// plus the public-chat rate-limit counters attached to it.
type User struct {
	ID                         int64
	UserName                   string
	Token                      string
	MessagesInHourInPublicChat int
	StartChattingInPublicChat  *time.Time
	CreatedAt                  time.Time
}

// Chat is a venue holding messages, either the singleton public chat
// or a lazily-created two-party private chat.
type Chat struct {
	ID        int64
	Name      string
	Type      ChatType
	CreatedAt time.Time
}

// Membership is the per-(chat,user) row tracking read position and
// moderation state.
type Membership struct {
	ID          int64
	ChatID      int64
	UserID      int64
	LastConnect *time.Time
	Cautions    int
	Banned      bool
	BannedTill  *time.Time
}

// Message is a single chat post.
type Message struct {
	ID       int64
	Text     string
	PubDate  time.Time
	AuthorID int64
	ChatID   int64

	// AuthorName is populated by store reads that join users, so
	// handlers never have to issue a second query per message.
	AuthorName string
}

// Comment is a reply to a single message.
type Comment struct {
	ID        int64
	Text      string
	CreatedAt time.Time
	AuthorID  int64
	MessageID int64
}
