package handlers

import (
	"context"
	"database/sql"
	"strings"

	"chatserver/internal/auth"
	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
)

// GetToken issues a bearer token for a new user_name, or confirms an
// existing one already has one.
func (h *Handlers) GetToken(ctx context.Context, _ *models.User, body []byte) (int, []byte, error) {
	var req models.GetTokenRequest
	if err := decodeBody(body, &req); err != nil {
		return 0, nil, err
	}

	userName := strings.TrimSpace(req.UserName)
	if userName == "" {
		return 0, nil, errors.New(errors.Unauthorized)
	}

	exists, err := database.UserNameExists(ctx, h.db, userName)
	if err != nil {
		return 0, nil, err
	}
	if exists {
		return 200, encodeJSON(models.GetTokenResponse{Info: "You have already got token ."}), nil
	}

	var token string
	err = h.db.Transaction(ctx, func(tx *sql.Tx) error {
		for {
			t, genErr := auth.GenerateToken()
			if genErr != nil {
				return genErr
			}
			collides, checkErr := database.TokenExists(ctx, tx, t)
			if checkErr != nil {
				return checkErr
			}
			if !collides {
				token = t
				break
			}
		}

		user, createErr := database.CreateUser(ctx, tx, userName, token)
		if createErr != nil {
			return createErr
		}

		publicChat, chatErr := database.GetPublicChat(ctx, tx)
		if chatErr != nil {
			return chatErr
		}

		return database.CreateMembership(ctx, tx, publicChat.ID, user.ID)
	})
	if err != nil {
		return 0, nil, err
	}

	return 200, encodeJSON(models.GetTokenResponse{Token: token}), nil
}
