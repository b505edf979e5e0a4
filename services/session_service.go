package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/config"
	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/token"
)

// TokenPair is an issued access+refresh credential pair
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshTTL   time.Duration
}

// SessionService issues token pairs and durably replaces the stored refresh
// value. Issuing a new pair invalidates the previous refresh value
// unconditionally: at most one refresh value is live per user.
type SessionService struct {
	codec      *token.Codec
	tokens     repositories.RefreshTokenRepository
	accessTTL  time.Duration
	refreshTTL time.Duration
	logger     *zap.Logger
}

// NewSessionService creates a new session service
func NewSessionService(codec *token.Codec, tokens repositories.RefreshTokenRepository, cfg config.JWTConfig, logger *zap.Logger) *SessionService {
	return &SessionService{
		codec:      codec,
		tokens:     tokens,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		logger:     logger,
	}
}

// Subject returns the token subject for a user: username for local
// accounts, email for social accounts (which have no meaningful username
// chosen by the user).
func Subject(user *models.User) string {
	if user.Social {
		return user.Email
	}
	return user.Username
}

// Issue mints a fresh access+refresh pair for the user and stores the new
// refresh value with a compare-and-swap against the value read just before.
// A CAS conflict means a concurrent rotation won the race; the whole
// read+mint+store step is retried once against the freshly read value. A
// second conflict fails with ErrSessionConflict so the caller retries the
// login or refresh from the top.
func (s *SessionService) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	userID := user.ID.String()

	for attempt := 0; attempt < 2; attempt++ {
		current, err := s.tokens.Get(ctx, userID)
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrStoreUnavailable.WithCause(err)
		}

		accessToken, err := s.codec.IssueAccess(Subject(user), user.Role, s.accessTTL)
		if err != nil {
			return nil, ErrInternal.WithCause(err)
		}
		refreshToken, err := s.codec.IssueRefresh(s.refreshTTL)
		if err != nil {
			return nil, ErrInternal.WithCause(err)
		}

		err = s.tokens.CompareAndSwap(ctx, userID, current, refreshToken)
		if errors.Is(err, repositories.ErrConflict) {
			s.logger.Debug("refresh rotation lost the race, retrying",
				zap.String("user_id", userID),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, ErrStoreUnavailable.WithCause(err)
		}

		return &TokenPair{
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			RefreshTTL:   s.refreshTTL,
		}, nil
	}

	return nil, ErrSessionConflict
}

// Revoke clears the stored refresh value for the user. Used on logout; an
// absent record is not an error.
func (s *SessionService) Revoke(ctx context.Context, user *models.User) error {
	if err := s.tokens.Clear(ctx, user.ID.String()); err != nil {
		return ErrStoreUnavailable.WithCause(err)
	}
	s.logger.Info("session revoked", zap.String("user_id", user.ID.String()))
	return nil
}
