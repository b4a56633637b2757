package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrEmptySecret  = errors.New("jwt secret must not be empty")
)

// Verifier validates HS256 access tokens issued by the auth service.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier for the shared signing secret. An empty
// secret would accept tokens anyone can sign, so it is refused.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// ValidateToken verifies the JWT and returns the authenticated user id.
func (v *Verifier) ValidateToken(token string) (int, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	userID, err := userIDFromClaims(claims)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// Issue signs a token for userID. Used by tests and local tooling only.
func (v *Verifier) Issue(userID int, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": strconv.Itoa(userID),
		"exp": time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	if sub, err := claims.GetSubject(); err == nil && sub != "" {
		return strconv.Atoi(sub)
	}
	switch id := claims["user_id"].(type) {
	case float64:
		return int(id), nil
	case string:
		return strconv.Atoi(id)
	}
	return 0, ErrInvalidToken
}
