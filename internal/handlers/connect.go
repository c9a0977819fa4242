package handlers

import (
	"context"
	"database/sql"
	"time"

	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
)

const timestampFormat = "02.01.2006, 15:04:05"
const defaultMessagesNumber = 20

// Connect fetches chat history for the caller, advancing last_connect
// to now.
func (h *Handlers) Connect(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
	var req models.ConnectRequest
	if err := decodeBody(body, &req); err != nil {
		return 0, nil, err
	}

	chatWith := req.ChatWith
	if chatWith == "" {
		chatWith = models.PublicChatName
	}
	messagesNumber := defaultMessagesNumber
	if req.MessagesNumber != nil {
		messagesNumber = *req.MessagesNumber
	}

	var resp interface{}
	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		var chat *models.Chat
		if chatWith == models.PublicChatName {
			c, err := database.GetPublicChat(ctx, tx)
			if err != nil {
				return err
			}
			chat = c
		} else {
			target, err := database.GetUserByName(ctx, tx, chatWith)
			if err != nil {
				return err
			}
			c, err := database.FindPrivateChat(ctx, tx, user.ID, target.ID)
			if err != nil {
				if appErr, ok := errors.As(err); ok && appErr.Code == errors.NotFound {
					resp = map[string][]models.MessageView{"messages": {}}
					return nil
				}
				return err
			}
			chat = c
		}

		membership, err := database.GetMembership(ctx, tx, chat.ID, user.ID)
		if err != nil {
			return err
		}

		lastConnect := chat.CreatedAt
		if membership.LastConnect != nil {
			lastConnect = *membership.LastConnect
		}

		before, err := database.MessagesBefore(ctx, tx, chat.ID, lastConnect, messagesNumber)
		if err != nil {
			return err
		}
		after, err := database.MessagesSince(ctx, tx, chat.ID, lastConnect)
		if err != nil {
			return err
		}

		messageViews, err := renderMessages(ctx, tx, before)
		if err != nil {
			return err
		}
		unreadViews, err := renderMessages(ctx, tx, after)
		if err != nil {
			return err
		}

		if err := database.UpdateLastConnect(ctx, tx, chat.ID, user.ID, time.Now().UTC()); err != nil {
			return err
		}

		resp = models.ConnectResponse{Messages: messageViews, UnreadMessages: unreadViews}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	return 200, encodeJSON(resp), nil
}

func renderMessages(ctx context.Context, q database.Querier, msgs []models.Message) ([]models.MessageView, error) {
	ids := make([]int64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.ID
	}
	comments, err := database.CommentsByMessage(ctx, q, ids)
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(msgs))
	for _, m := range msgs {
		var commentViews []models.CommentView
		for _, c := range comments[m.ID] {
			commentViews = append(commentViews, models.CommentView{
				ID: c.ID, Author: c.Author, Text: c.Text, Created: c.CreatedAt.Format(timestampFormat),
			})
		}
		views = append(views, models.MessageView{
			ID:              m.ID,
			PubDate:         m.PubDate.Format(timestampFormat),
			Author:          m.AuthorName,
			MessageText:     m.Text,
			MessageComments: commentViews,
		})
	}
	return views, nil
}
