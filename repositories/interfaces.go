package repositories

import (
	"context"
	"errors"

	"github.com/moimpay/moim-backend/models"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a compare-and-swap or uniqueness
	// constraint loses against a concurrent write
	ErrConflict = errors.New("concurrent modification conflict")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository is the principal directory: account lookup and the
// create-if-absent path used by local signup and the identity bridge.
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// RefreshTokenRepository persists exactly one refresh-token value per user.
// CompareAndSwap is the only write path for rotation; no other code is
// permitted to replace a stored value directly.
type RefreshTokenRepository interface {
	// Get returns the currently stored refresh token value for the user,
	// or ErrNotFound when the user has no active session.
	Get(ctx context.Context, userID string) (string, error)

	// CompareAndSwap atomically replaces the stored value with newValue,
	// but only when the current value equals expected. An empty expected
	// means "no value stored". Returns ErrConflict when the comparison
	// loses against a concurrent rotation.
	CompareAndSwap(ctx context.Context, userID, expected, newValue string) error

	// Clear removes the stored value, used on detected theft and logout.
	// Clearing an absent record is not an error.
	Clear(ctx context.Context, userID string) error
}

// Repositories holds all repository instances
type Repositories struct {
	Users         UserRepository
	RefreshTokens RefreshTokenRepository
}
