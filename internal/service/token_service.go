package service

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/manualhub/manual-api/internal/models"
	appErrors "github.com/manualhub/manual-api/pkg/errors"
)

// TokenService validates bearer tokens minted by the identity provider.
// This API never issues tokens; it only verifies them.
type TokenService struct {
	secret []byte
}

// NewTokenService constructs the service with the shared HMAC secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Validate parses and verifies an access token, returning its claims.
func (s *TokenService) Validate(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}

	claims, ok := token.Claims.(*models.Claims)
	if !ok || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	if claims.UserID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token carries no subject")
	}
	return claims, nil
}
