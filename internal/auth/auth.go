package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is who a bearer token was issued to.
type Identity struct {
	UserID string
	Email  string
}

type Authenticator interface {
	GenerateToken(id Identity, ttl time.Duration) (string, error)
	ValidateAccessToken(token string) (*jwt.Token, error)
}

var ErrMissingSubject = errors.New("token has no subject")

// IdentityFromToken reads the sub and email claims of a validated token.
func IdentityFromToken(t *jwt.Token) (Identity, error) {
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("unexpected claims type")
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return Identity{}, err
	}
	if sub == "" {
		return Identity{}, ErrMissingSubject
	}

	email, _ := claims["email"].(string)
	return Identity{UserID: sub, Email: email}, nil
}
