// Package auth is the access gate: password hashing, token issue and
// verification, and the per-role permission table.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

type Service struct {
	users  UserStore
	tokens *Tokens
	cost   int
	log    logrus.FieldLogger
}

func NewService(users UserStore, tokens *Tokens, bcryptCost int, log logrus.FieldLogger) *Service {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{users: users, tokens: tokens, cost: bcryptCost, log: log}
}

// LoginResult is returned by Login.
type LoginResult struct {
	Token string    `json:"token"`
	User  TokenUser `json:"user"`
}

// Register creates a user and returns a token for it. An empty role
// registers a regular user.
func (s *Service) Register(ctx context.Context, email, password, role string) (string, error) {
	const op = "auth.Register"
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return "", apperr.E(op, apperr.Validation, "Email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", apperr.WrapKind(op, apperr.Validation, "Invalid email", err)
	}
	r := model.RoleUser
	if strings.TrimSpace(role) != "" {
		var err error
		if r, err = model.ParseRole(role); err != nil {
			return "", apperr.WrapKind(op, apperr.Validation, "Invalid role", err)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", apperr.WrapKind(op, apperr.Validation, "Password is too long", err)
		}
		return "", apperr.Wrap(op, err)
	}

	u := model.User{Email: email, Password: string(hash), Role: r}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return "", apperr.Wrap(op, err)
	}
	s.log.WithFields(logrus.Fields{"user_id": u.UserID, "role": u.Role}).Info("user registered")

	token, err := s.tokens.Issue(u)
	if err != nil {
		return "", apperr.Wrap(op, err)
	}
	return token, nil
}

// Login checks the credentials and returns a fresh token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (LoginResult, error) {
	const op = "auth.Login"
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, apperr.E(op, apperr.Validation, "Email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if apperr.Is(err, apperr.NotFound) {
		return LoginResult{}, apperr.E(op, apperr.Auth, "Invalid credentials")
	}
	if err != nil {
		return LoginResult{}, apperr.Wrap(op, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		return LoginResult{}, apperr.WrapKind(op, apperr.Auth, "Invalid credentials", err)
	}

	token, err := s.tokens.Issue(u)
	if err != nil {
		return LoginResult{}, apperr.Wrap(op, err)
	}
	return LoginResult{Token: token, User: TokenUser{Email: u.Email, Role: u.Role}}, nil
}

// Resolve turns a raw token into the identity of an existing user. The user
// is looked up on every call so that removed users lose access at once.
func (s *Service) Resolve(ctx context.Context, raw string) (model.Identity, error) {
	const op = "auth.Resolve"
	if raw == "" {
		return model.Identity{}, apperr.E(op, apperr.Auth, "No token, authorization denied")
	}
	sub, err := s.tokens.Parse(raw)
	if err != nil {
		return model.Identity{}, apperr.WrapKind(op, apperr.Auth, "Token is not valid", err)
	}

	u, err := s.users.GetUserByEmail(ctx, sub.Email)
	if apperr.Is(err, apperr.NotFound) {
		return model.Identity{}, apperr.E(op, apperr.Auth, "User not found")
	}
	if err != nil {
		return model.Identity{}, apperr.Wrap(op, err)
	}
	return model.Identity{UserID: u.UserID, Email: u.Email, Role: u.Role}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
