package handlers

import (
	"context"
	"database/sql"

	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
	"chatserver/internal/validation"
)

// Comment replies to a message. An unresolved message_id is a 400, not
// a 404, deliberately different from every other "named entity
// missing" case in this protocol.
func (h *Handlers) Comment(ctx context.Context, user *models.User, body []byte) (int, []byte, error) {
	var req models.CommentRequest
	if err := decodeBody(body, &req); err != nil {
		return 0, nil, err
	}
	if req.MessageID == 0 {
		return 0, nil, errors.New(errors.BadRequest)
	}
	if err := validation.ValidateCommentText(req.Comment); err != nil {
		return 0, nil, err
	}
	req.Comment = validation.SanitizeString(req.Comment)

	err := h.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := database.GetMessage(ctx, tx, req.MessageID); err != nil {
			if appErr, ok := errors.As(err); ok && appErr.Code == errors.NotFound {
				return errors.New(errors.BadRequest)
			}
			return err
		}
		_, err := database.InsertComment(ctx, tx, req.MessageID, user.ID, req.Comment)
		return err
	})
	if err != nil {
		return 0, nil, err
	}

	return 201, encodeJSON(models.InfoResponse{Info: "Comment have created!"}), nil
}
