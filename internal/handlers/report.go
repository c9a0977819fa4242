package handlers

import (
	"context"
	"database/sql"
	"time"

	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
	"chatserver/internal/moderation"
	"chatserver/internal/services"
	"chatserver/internal/validation"
)

// Report applies a caution against report_on, escalating to a ban on
// the third report.
func (h *Handlers) Report(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
	var req models.ReportRequest
	if err := decodeBody(body, &req); err != nil {
		return 0, nil, err
	}
	if req.ReportOn == "" {
		return 0, nil, errors.New(errors.BadRequest)
	}
	if err := validation.ValidateChatType(req.ChatType); err != nil {
		return 0, nil, err
	}

	var status int
	var resp interface{}
	var notify *services.ModerationEvent

	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		reportOn, err := database.GetUserByName(ctx, tx, req.ReportOn)
		if err != nil {
			if appErr, ok := errors.As(err); ok && appErr.Code == errors.NotFound {
				return errors.New(errors.BadRequest)
			}
			return err
		}

		var chat *models.Chat
		if req.ChatType == string(models.ChatPublic) {
			c, err := database.GetPublicChat(ctx, tx)
			if err != nil {
				return err
			}
			chat = c
		} else {
			c, err := database.FindPrivateChat(ctx, tx, user.ID, reportOn.ID)
			if err != nil {
				if appErr, ok := errors.As(err); ok && appErr.Code == errors.NotFound {
					status, resp = 200, models.WarningResponse{Warning: "You can not report a user you have not chat to."}
					return nil
				}
				return err
			}
			chat = c
		}

		result, err := moderation.AddCaution(ctx, tx, chat.ID, reportOn.ID, h.cfg.RateLimit.BanHours)
		if err != nil {
			return err
		}

		if result.AlreadyBanned {
			status, resp = 201, models.InfoResponse{Info: "User is currently banned."}
			return nil
		}

		membership, err := database.GetMembership(ctx, tx, chat.ID, reportOn.ID)
		if err != nil {
			return err
		}
		notify = &services.ModerationEvent{
			ChatName:  chat.Name,
			UserName:  reportOn.UserName,
			Cautions:  membership.Cautions,
			Banned:    membership.Banned,
			Timestamp: time.Now().UTC(),
		}

		status, resp = 201, models.InfoResponse{Info: "Report sent success."}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	if notify != nil && h.webhook.Enabled() {
		ev := *notify
		h.pool.SubmitWebhook(func() {
			_ = h.webhook.Notify(context.Background(), ev)
		})
	}

	return status, encodeJSON(resp), nil
}
