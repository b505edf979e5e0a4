package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/repositories"
)

// RefreshTokenRepository implements repositories.RefreshTokenRepository on a
// single-row-per-user table. All mutation goes through CompareAndSwap and
// Clear; the row-level WHERE clause on the expected value is the atomic
// primitive the rotation race safety rests on.
type RefreshTokenRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(db *DB, logger *zap.Logger) repositories.RefreshTokenRepository {
	return &RefreshTokenRepository{
		db:     db,
		logger: logger,
	}
}

// Get returns the currently stored refresh token value for the user
func (r *RefreshTokenRepository) Get(ctx context.Context, userID string) (string, error) {
	query := `SELECT token FROM refresh_tokens WHERE user_id = $1`

	executor := GetExecutor(ctx, r.db)

	var token string
	if err := executor.QueryRowContext(ctx, query, userID).Scan(&token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", repositories.ErrNotFound
		}
		return "", fmt.Errorf("failed to get refresh token: %w", err)
	}

	return token, nil
}

// CompareAndSwap atomically replaces the stored value with newValue when the
// current value equals expected. An empty expected means the caller observed
// no stored value; the insert then only wins when no row exists.
func (r *RefreshTokenRepository) CompareAndSwap(ctx context.Context, userID, expected, newValue string) error {
	executor := GetExecutor(ctx, r.db)

	var (
		result sql.Result
		err    error
	)
	if expected == "" {
		query := `
			INSERT INTO refresh_tokens (user_id, token, updated_at)
			VALUES ($1, $2, CURRENT_TIMESTAMP)
			ON CONFLICT (user_id) DO NOTHING
		`
		result, err = executor.ExecContext(ctx, query, userID, newValue)
	} else {
		query := `
			UPDATE refresh_tokens
			SET token = $3, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $1 AND token = $2
		`
		result, err = executor.ExecContext(ctx, query, userID, expected, newValue)
	}

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return repositories.ErrConflict
		}
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		// A concurrent rotation or logout changed the row first.
		return repositories.ErrConflict
	}

	r.logger.Debug("refresh token rotated", zap.String("user_id", userID))
	return nil
}

// Clear removes the stored value. Clearing an absent record is not an error.
func (r *RefreshTokenRepository) Clear(ctx context.Context, userID string) error {
	query := `DELETE FROM refresh_tokens WHERE user_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear refresh token: %w", err)
	}

	r.logger.Debug("refresh token cleared", zap.String("user_id", userID))
	return nil
}
