package handlers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
	"chatserver/internal/moderation"
	"chatserver/internal/validation"
)

// Send posts a message to the public chat or a private chat,
// enforcing the ban check and public rate limit.
func (h *Handlers) Send(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
	var req models.SendRequest
	if err := decodeBody(body, &req); err != nil {
		return 0, nil, err
	}
	if err := validation.ValidateMessageText(req.Message); err != nil {
		return 0, nil, err
	}
	req.Message = validation.SanitizeString(req.Message)
	sendTo := req.SendTo
	if sendTo == "" {
		sendTo = models.PublicChatName
	}

	var status int
	var resp interface{}

	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		if sendTo == models.PublicChatName {
			s, r, err := h.sendToPublicChat(ctx, tx, user, req.Message)
			status, resp = s, r
			return err
		}
		s, r, err := h.sendToPrivateChat(ctx, tx, user, sendTo, req.Message)
		status, resp = s, r
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	return status, encodeJSON(resp), nil
}

func (h *Handlers) sendToPublicChat(ctx context.Context, tx *sql.Tx, user *models.User, text string) (int, interface{}, error) {
	publicChat, err := database.GetPublicChat(ctx, tx)
	if err != nil {
		return 0, nil, err
	}

	ban, err := moderation.IsBanned(ctx, tx, publicChat.ID, user.ID)
	if err != nil {
		return 0, nil, err
	}
	if ban.Banned {
		return 200, models.WarningResponse{Warning: ban.Warning}, nil
	}

	freshUser, err := database.GetUserByID(ctx, tx, user.ID)
	if err != nil {
		return 0, nil, err
	}

	rate, err := moderation.CheckPublicChatRateLimit(ctx, tx, freshUser, h.cfg.RateLimit)
	if err != nil {
		return 0, nil, err
	}
	if !rate.Allowed {
		return 200, models.WarningResponse{Warning: rate.Warning}, nil
	}

	if _, err := database.InsertMessage(ctx, tx, publicChat.ID, user.ID, text); err != nil {
		return 0, nil, err
	}
	if err := database.UpdateLastConnect(ctx, tx, publicChat.ID, user.ID, time.Now().UTC()); err != nil {
		return 0, nil, err
	}

	return 201, models.InfoResponse{Info: "Message have sent!"}, nil
}

func (h *Handlers) sendToPrivateChat(ctx context.Context, tx *sql.Tx, user *models.User, sendTo, text string) (int, interface{}, error) {
	target, err := database.GetUserByName(ctx, tx, sendTo)
	if err != nil {
		return 0, nil, err
	}

	chat, err := database.FindPrivateChat(ctx, tx, user.ID, target.ID)
	if err != nil {
		appErr, ok := errors.As(err)
		if !ok || appErr.Code != errors.NotFound {
			return 0, nil, err
		}

		newChat, createErr := database.CreatePrivateChat(ctx, tx, fmt.Sprintf("private-%d", time.Now().UTC().Unix()), user.ID, target.ID)
		if createErr != nil {
			return 0, nil, createErr
		}
		if _, insertErr := database.InsertMessage(ctx, tx, newChat.ID, user.ID, text); insertErr != nil {
			return 0, nil, insertErr
		}
		if err := database.UpdateLastConnect(ctx, tx, newChat.ID, user.ID, time.Now().UTC()); err != nil {
			return 0, nil, err
		}
		return 201, models.InfoResponse{Info: "Message have sent!"}, nil
	}

	ban, err := moderation.IsBanned(ctx, tx, chat.ID, user.ID)
	if err != nil {
		return 0, nil, err
	}
	if ban.Banned {
		return 200, models.WarningResponse{Warning: ban.Warning}, nil
	}

	if _, err := database.InsertMessage(ctx, tx, chat.ID, user.ID, text); err != nil {
		return 0, nil, err
	}
	if err := database.UpdateLastConnect(ctx, tx, chat.ID, user.ID, time.Now().UTC()); err != nil {
		return 0, nil, err
	}

	return 201, models.InfoResponse{Info: "Message have sent!"}, nil
}
