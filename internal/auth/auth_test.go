package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cupoftea4/pos-mysql/internal/apperr"
	"github.com/cupoftea4/pos-mysql/internal/logging"
	"github.com/cupoftea4/pos-mysql/internal/model"
)

type memUsers struct {
	byEmail map[string]model.User
	nextID  int64
}

func newMemUsers() *memUsers {
	return &memUsers{byEmail: map[string]model.User{}}
}

func (m *memUsers) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return model.User{}, apperr.E("mem.GetUserByEmail", apperr.NotFound, "User not found")
	}
	return u, nil
}

func (m *memUsers) CreateUser(ctx context.Context, u *model.User) error {
	if _, ok := m.byEmail[u.Email]; ok {
		return apperr.E("mem.CreateUser", apperr.Conflict, "User already exists")
	}
	m.nextID++
	u.UserID = m.nextID
	m.byEmail[u.Email] = *u
	return nil
}

func newTestService(users *memUsers) *Service {
	return NewService(users, NewTokens("test-secret", time.Hour), bcrypt.MinCost, logging.Discard())
}

func TestTokensRoundTrip(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	raw, err := tk.Issue(model.User{Email: "owner@example.com", Role: model.RoleAdmin})
	require.NoError(t, err)

	sub, err := tk.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, TokenUser{Email: "owner@example.com", Role: model.RoleAdmin}, sub)
}

func TestTokensRejected(t *testing.T) {
	tk := NewTokens("s3cret", time.Hour)
	raw, err := tk.Issue(model.User{Email: "owner@example.com", Role: model.RoleAdmin})
	require.NoError(t, err)

	_, err = NewTokens("other", time.Hour).Parse(raw)
	assert.Error(t, err, "wrong secret")

	expired := NewTokens("s3cret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.Parse(raw)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		User:             TokenUser{Email: "owner@example.com", Role: model.RoleAdmin},
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tk.Parse(unsigned)
	assert.Error(t, err, "alg none")

	_, err = tk.Parse("garbage")
	assert.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	users := newMemUsers()
	s := newTestService(users)
	ctx := context.Background()

	token, err := s.Register(ctx, " Owner@Example.com ", "hunter2", "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	stored := users.byEmail["owner@example.com"]
	assert.Equal(t, model.RoleAdmin, stored.Role)
	assert.NotEqual(t, "hunter2", stored.Password)

	_, err = s.Register(ctx, "owner@example.com", "again", "user")
	assert.Equal(t, apperr.Conflict, apperr.KindOf(err))

	res, err := s.Login(ctx, "owner@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, TokenUser{Email: "owner@example.com", Role: model.RoleAdmin}, res.User)

	who, err := s.Resolve(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.UserID, who.UserID)
	assert.True(t, who.IsAdmin())

	_, err = s.Login(ctx, "owner@example.com", "wrong")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	_, err = s.Login(ctx, "nobody@example.com", "hunter2")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
	assert.Equal(t, "Invalid credentials", apperr.Message(err))
}

func TestRegisterValidation(t *testing.T) {
	s := newTestService(newMemUsers())
	tests := []struct{ name, email, password, role string }{
		{"no email", "", "pw", "user"},
		{"no password", "a@example.com", "", "user"},
		{"bad email", "not-an-email", "pw", "user"},
		{"bad role", "a@example.com", "pw", "owner"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.email, tt.password, tt.role)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}

	_, err := s.Register(context.Background(), "staff@example.com", "pw", "")
	require.NoError(t, err)
}

func TestResolve(t *testing.T) {
	users := newMemUsers()
	s := newTestService(users)
	ctx := context.Background()

	_, err := s.Resolve(ctx, "")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))

	_, err = s.Resolve(ctx, "not.a.token")
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))

	token, err := s.Register(ctx, "staff@example.com", "pw", "user")
	require.NoError(t, err)
	who, err := s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, who.Role)

	// A role change in the store wins over the role inside the token.
	u := users.byEmail["staff@example.com"]
	u.Role = model.RoleAdmin
	users.byEmail["staff@example.com"] = u
	who, err = s.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, who.Role)

	delete(users.byEmail, "staff@example.com")
	_, err = s.Resolve(ctx, token)
	assert.Equal(t, apperr.Auth, apperr.KindOf(err))
}

func TestPermissions(t *testing.T) {
	adminOnly := []Permission{ManageCategories, ManageItems, RefundOrders, ViewReports}
	everyone := []Permission{ReadItems, ReadOrders, CreateOrders, PrintReceipts}

	for _, p := range adminOnly {
		assert.True(t, Allowed(model.RoleAdmin, p), p)
		assert.False(t, Allowed(model.RoleUser, p), p)
	}
	for _, p := range everyone {
		assert.True(t, Allowed(model.RoleAdmin, p), p)
		assert.True(t, Allowed(model.RoleUser, p), p)
	}
	assert.False(t, Allowed(model.Role("guest"), ReadItems))

	err := Require(model.Identity{Role: model.RoleUser}, RefundOrders)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.NoError(t, Require(model.Identity{Role: model.RoleAdmin}, RefundOrders))
}
