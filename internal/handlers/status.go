package handlers

import (
	"context"
	"database/sql"

	"chatserver/internal/database"
	"chatserver/internal/models"
)

// Status summarizes every chat the caller belongs to, rendering a
// private chat's display name as its other participant's user_name.
func (h *Handlers) Status(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
	var resp models.StatusResponse
	resp.ConnectedAs = user.UserName

	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		memberships, err := database.ChatsForUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		for _, cm := range memberships {
			name := cm.Chat.Name
			if cm.Chat.Type == models.ChatPrivate {
				other, err := database.OtherMember(ctx, tx, cm.Chat.ID, user.ID)
				if err != nil {
					return err
				}
				name = other.UserName
			}

			messagesCount, err := database.CountMessages(ctx, tx, cm.Chat.ID)
			if err != nil {
				return err
			}
			usersCount, err := database.CountMembers(ctx, tx, cm.Chat.ID)
			if err != nil {
				return err
			}

			resp.Chats = append(resp.Chats, models.StatusChatView{
				Name:          name,
				ChatType:      string(cm.Chat.Type),
				Created:       cm.Chat.CreatedAt.Format(timestampFormat),
				MessagesCount: messagesCount,
				UsersCount:    usersCount,
			})
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return 200, encodeJSON(resp), nil
}
