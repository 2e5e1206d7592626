package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Principal is the verified caller identity the routing layer hands to the
// services. The services trust it unconditionally.
type Principal struct {
	ID       int64
	Username string
}

type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl == 0 {
		ttl = time.Hour
	}

	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Issue signs an HS256 token carrying the principal's id and username.
func (m *TokenManager) Issue(p Principal) (string, error) {
	const op = "auth.TokenManager.Issue"

	now := time.Now()
	claims := jwt.MapClaims{
		"id":       p.ID,
		"username": p.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(m.ttl).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse verifies the token signature and expiry and extracts the principal.
func (m *TokenManager) Parse(tokenStr string) (Principal, error) {
	const op = "auth.TokenManager.Parse"

	token, err := jwt.Parse(
		tokenStr,
		func(t *jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return Principal{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	id, ok := claims["id"].(float64)
	if !ok {
		return Principal{}, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	username, _ := claims["username"].(string)

	return Principal{ID: int64(id), Username: username}, nil
}
