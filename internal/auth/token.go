package auth

import (
	"errors"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/ticket-routing/internal/domain"
)

// TokenVerifier validates platform-issued JWTs. The engine never issues
// tokens; the platform auth service does.
type TokenVerifier struct {
	secret []byte
}

// NewTokenVerifier builds a verifier over the shared secret.
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{secret: []byte(secret)}
}

// Claims describes the JWT payload identifying the acting agent.
type Claims struct {
	AgentID        string           `json:"sub"`
	OrganizationID string           `json:"org"`
	Role           domain.AgentRole `json:"role"`
	jwt.RegisteredClaims
}

// Verify validates the token and returns its claims.
func (tv *TokenVerifier) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tv.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}
