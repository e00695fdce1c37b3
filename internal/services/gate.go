package services

import (
	"errors"
	"time"

	"trueheal-portal/internal/models"
	"trueheal-portal/internal/utils"
)

// TokenGate turns a bearer token into an Identity.
type TokenGate struct {
	secret string
	now    func() time.Time
}

// NewTokenGate creates a gate that checks tokens signed with secret.
func NewTokenGate(secret string) *TokenGate {
	return &TokenGate{secret: secret, now: time.Now}
}

// Authenticate verifies token and returns the identity it carries.
func (g *TokenGate) Authenticate(token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, ErrMissingToken
	}
	claims, err := utils.ValidateToken(token, g.secret, g.now())
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return models.Identity{}, ErrExpiredToken
		}
		return models.Identity{}, ErrInvalidToken
	}
	return models.Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// Authorize fails with ErrForbidden unless id holds one of roles.
func Authorize(id models.Identity, roles ...models.Role) error {
	if !id.HasRole(roles...) {
		return ErrForbidden
	}
	return nil
}
