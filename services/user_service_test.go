package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/repositories"
)

// fakeTxManager hands out no-op transactions; transactional behavior itself
// is covered by the postgres package tests.
type fakeTxManager struct {
	err error
}

type fakeTx struct {
	ctx context.Context
}

func (tx *fakeTx) Commit() error            { return nil }
func (tx *fakeTx) Rollback() error          { return nil }
func (tx *fakeTx) Context() context.Context { return tx.ctx }

func (m *fakeTxManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &fakeTx{ctx: ctx}, nil
}

func (m *fakeTxManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	if m.err != nil {
		return m.err
	}
	return fn(ctx, &fakeTx{ctx: ctx})
}

func newUserService(users *fakeUserDirectory) *UserService {
	return NewUserService(users, &fakeTxManager{}, zap.NewNop())
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestUserService_Signup(t *testing.T) {
	users := &fakeUserDirectory{}
	svc := newUserService(users)

	user, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "alice",
		Password: "secret-password",
		Email:    "Alice@Example.com",
		Nickname: "Alice",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email is stored lowercased")
	assert.Equal(t, models.RoleUser, user.Role)
	assert.False(t, user.Social)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret-password")))
}

func TestUserService_Signup_Validation(t *testing.T) {
	svc := newUserService(&fakeUserDirectory{})

	tests := []struct {
		name string
		req  *SignupRequest
	}{
		{"missing username", &SignupRequest{Password: "secret-password", Email: "a@b.com", Nickname: "A"}},
		{"short username", &SignupRequest{Username: "ab", Password: "secret-password", Email: "a@b.com", Nickname: "A"}},
		{"non alphanumeric username", &SignupRequest{Username: "al ice!", Password: "secret-password", Email: "a@b.com", Nickname: "A"}},
		{"short password", &SignupRequest{Username: "alice", Password: "short", Email: "a@b.com", Nickname: "A"}},
		{"bad email", &SignupRequest{Username: "alice", Password: "secret-password", Email: "not-an-email", Nickname: "A"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUserService_Signup_DuplicateUsername(t *testing.T) {
	users := (&fakeUserDirectory{}).add(
		models.NewLocalUser("alice", "alice@example.com", "hash", "Alice"))
	svc := newUserService(users)

	_, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "alice",
		Password: "secret-password",
		Email:    "other@example.com",
		Nickname: "Other",
	})
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestUserService_Signup_DuplicateEmail(t *testing.T) {
	users := (&fakeUserDirectory{}).add(
		models.NewLocalUser("alice", "alice@example.com", "hash", "Alice"))
	svc := newUserService(users)

	_, err := svc.Signup(context.Background(), &SignupRequest{
		Username: "bob",
		Password: "secret-password",
		Email:    "alice@example.com",
		Nickname: "Bob",
	})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestUserService_Login(t *testing.T) {
	users := (&fakeUserDirectory{}).add(
		models.NewLocalUser("alice", "alice@example.com", hashOf(t, "secret-password"), "Alice"))
	svc := newUserService(users)

	user, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "secret-password"})
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}

// All rejection paths share one error so responses cannot reveal whether a
// username exists.
func TestUserService_Login_Rejections(t *testing.T) {
	users := (&fakeUserDirectory{}).add(
		models.NewLocalUser("alice", "alice@example.com", hashOf(t, "secret-password"), "Alice"),
		models.NewSocialUser("Bob", "bob@example.com", models.ProviderGoogle))
	svc := newUserService(users)

	tests := []struct {
		name string
		req  *LoginRequest
	}{
		{"wrong password", &LoginRequest{Username: "alice", Password: "wrong-password"}},
		{"unknown username", &LoginRequest{Username: "nobody", Password: "secret-password"}},
		{"social account has no local password", &LoginRequest{Username: "Bob", Password: "secret-password"}},
		{"empty credentials", &LoginRequest{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestUserService_Login_StoreUnavailable(t *testing.T) {
	users := &fakeUserDirectory{getErr: assert.AnError}
	svc := newUserService(users)

	_, err := svc.Login(context.Background(), &LoginRequest{Username: "alice", Password: "secret-password"})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestUserService_GetBySubject(t *testing.T) {
	users := (&fakeUserDirectory{}).add(
		models.NewLocalUser("alice", "alice@example.com", "hash", "Alice"),
		models.NewSocialUser("Bob", "bob@example.com", models.ProviderGoogle))
	svc := newUserService(users)

	local, err := svc.GetBySubject(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", local.Username)

	social, err := svc.GetBySubject(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.True(t, social.Social)

	_, err = svc.GetBySubject(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
