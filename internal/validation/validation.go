// Package validation holds the field constraints the protocol attaches
// to request bodies: user_name, message text, comment text, and the
// chat_type enum.
package validation

import (
	"strings"

	"chatserver/internal/errors"
)

const maxTextLength = 255

// ValidateUserName reports a blank user_name as BadRequest. /get-token
// does not call it: it checks user_name itself and answers a blank one
// with Unauthorized.
func ValidateUserName(userName string) error {
	if strings.TrimSpace(userName) == "" {
		return errors.New(errors.BadRequest)
	}
	return nil
}

// ValidateMessageText enforces /send's message body constraints.
func ValidateMessageText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.BadRequest)
	}
	if len(text) > maxTextLength {
		return errors.New(errors.BadRequest)
	}
	return nil
}

// ValidateCommentText enforces /comment's comment body constraints.
func ValidateCommentText(text string) error {
	return ValidateMessageText(text)
}

// ValidateChatType enforces /report's chat_type enum.
func ValidateChatType(chatType string) error {
	switch chatType {
	case "public", "private":
		return nil
	default:
		return errors.New(errors.BadRequest)
	}
}

// SanitizeString trims surrounding whitespace and strips control
// characters other than newline, carriage return and tab before a
// string is persisted or echoed back.
func SanitizeString(input string) string {
	input = strings.TrimSpace(input)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, input)
}
