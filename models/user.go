package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole represents the single role tag attached to a user
type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// Valid returns true for the known role tags
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Provider identifies the external identity provider a social account came from
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderKakao  Provider = "kakao"
)

// Valid returns true for the known providers
func (p Provider) Valid() bool {
	return p == ProviderGoogle || p == ProviderKakao
}

// ProviderOf maps an OAuth registration id to a Provider, empty when unknown
func ProviderOf(registrationID string) Provider {
	switch registrationID {
	case "google":
		return ProviderGoogle
	case "kakao":
		return ProviderKakao
	}
	return ""
}

// User represents an account in the moim backend. PasswordHash is empty for
// social accounts; such accounts can only log in through their provider.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Nickname     string    `json:"nickname,omitempty" db:"nickname"`
	Role         UserRole  `json:"role" db:"role"`
	Social       bool      `json:"social" db:"social"`
	Provider     Provider  `json:"provider,omitempty" db:"provider"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the User model
func (User) TableName() string {
	return "users"
}

// NewLocalUser creates a local (password) account with the default role
func NewLocalUser(username, email, passwordHash, nickname string) *User {
	now := time.Now()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Nickname:     nickname,
		Role:         RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewSocialUser creates an account originating from an external identity
// provider. No local password is set.
func NewSocialUser(username, email string, provider Provider) *User {
	now := time.Now()
	return &User{
		ID:        uuid.New(),
		Username:  username,
		Email:     email,
		Role:      RoleUser,
		Social:    true,
		Provider:  provider,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin returns true if the user has the ADMIN role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
