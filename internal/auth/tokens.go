package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cupoftea4/pos-mysql/internal/model"
)

// TokenUser is the subject carried inside a token.
type TokenUser struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

type claims struct {
	User TokenUser `json:"user"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HMAC-signed, time-limited tokens.
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *Tokens) Issue(u model.User) (string, error) {
	now := t.now()
	c := claims{
		User: TokenUser{Email: u.Email, Role: u.Role},
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw and returns its subject. Expired, unsigned or
// otherwise tampered tokens are rejected.
func (t *Tokens) Parse(raw string) (TokenUser, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return TokenUser{}, err
	}
	if c.User.Email == "" {
		return TokenUser{}, errors.New("token has no subject")
	}
	return c.User, nil
}
