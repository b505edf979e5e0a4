package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/token"
)

// RefreshService rotates a client's credential pair. Rotation accepts the
// expired access token purely to name the principal; validity comes entirely
// from the refresh token and its match against the stored value.
type RefreshService struct {
	codec    *token.Codec
	users    repositories.UserRepository
	tokens   repositories.RefreshTokenRepository
	sessions *SessionService
	logger   *zap.Logger
}

// NewRefreshService creates a new refresh service
func NewRefreshService(codec *token.Codec, users repositories.UserRepository, tokens repositories.RefreshTokenRepository, sessions *SessionService, logger *zap.Logger) *RefreshService {
	return &RefreshService{
		codec:    codec,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		logger:   logger,
	}
}

// Refresh validates the presented pair and, when the refresh token matches
// the stored value for the principal, rotates to a new pair. A presented
// refresh token that is genuine but no longer the stored value means the
// stored value was already rotated away, which is treated as reuse: the
// session is cleared and the principal must authenticate again.
func (s *RefreshService) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	if err := s.codec.VerifyRefresh(refreshToken); err != nil {
		return nil, refreshTokenError(err)
	}

	subject, err := s.codec.ExtractSubject(accessToken)
	if err != nil || subject == "" {
		return nil, ErrCannotIdentifyPrincipal.WithCause(err)
	}

	user, err := s.resolveSubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	userID := user.ID.String()

	stored, err := s.tokens.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNoActiveSession
		}
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	if subtle.ConstantTimeCompare([]byte(refreshToken), []byte(stored)) != 1 {
		s.logger.Warn("refresh token reuse detected, revoking session",
			zap.String("user_id", userID))
		if clearErr := s.tokens.Clear(ctx, userID); clearErr != nil {
			return nil, ErrStoreUnavailable.WithCause(clearErr)
		}
		return nil, ErrReuseDetected
	}

	return s.sessions.Issue(ctx, user)
}

// resolveSubject maps a token subject back to a user. Local subjects are
// usernames; social subjects are emails.
func (s *RefreshService) resolveSubject(ctx context.Context, subject string) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(subject, "@") {
		user, err = s.users.GetByEmail(ctx, subject)
	} else {
		user, err = s.users.GetByUsername(ctx, subject)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUnknownPrincipal
		}
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	return user, nil
}

// refreshTokenError maps codec failures on the presented refresh token.
func refreshTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrExpired.WithCause(err)
	case errors.Is(err, token.ErrBadSignature):
		return ErrBadSignature.WithCause(err)
	default:
		return ErrMalformed.WithCause(err)
	}
}
