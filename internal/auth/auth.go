// Package auth is the bearer-token gate: it resolves an Authorization
// header into the caller's identity, checking the cache layer before
// falling back to the domain store.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"chatserver/internal/database"
	"chatserver/internal/errors"
	"chatserver/internal/models"
	"chatserver/internal/services"
)

const identityCacheTTL = 10 * time.Minute

// Service resolves bearer tokens into users, backed by an optional
// cache in front of the domain store.
type Service struct {
	db    *database.DB
	cache services.CacheService
}

func NewService(db *database.DB, cache services.CacheService) *Service {
	return &Service{db: db, cache: cache}
}

// GenerateToken produces a 16-byte random token (32 hex characters).
// Collision checking against existing tokens is the caller's
// responsibility; see database.TokenExists.
func GenerateToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, errors.Internal)
	}
	return hex.EncodeToString(buf), nil
}

// ExtractBearerToken pulls the token out of an `Authorization: Bearer
// <token>` header value.
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New(errors.Unauthorized)
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", errors.New(errors.Unauthorized)
	}
	return parts[1], nil
}

// Authenticate resolves token to a user, consulting the cache first.
// Only immutable identity fields are ever cached. Moderation state
// always comes from a fresh store read inside the caller's own
// transaction, never from here.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	var cached services.CachedIdentity
	if s.cache != nil {
		if err := s.cache.Get(ctx, services.AuthTokenCacheKey(token), &cached); err == nil {
			return &models.User{ID: cached.UserID, UserName: cached.UserName, Token: token}, nil
		}
	}

	user, err := database.GetUserByToken(ctx, s.db, token)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, services.AuthTokenCacheKey(token), services.CachedIdentity{
			UserID:   user.ID,
			UserName: user.UserName,
		}, identityCacheTTL)
	}

	return user, nil
}
