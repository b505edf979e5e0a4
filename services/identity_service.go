package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/utils"
)

// ExternalIdentity is the verified claim set delivered by an identity
// provider after a successful OAuth exchange.
type ExternalIdentity struct {
	Email    string
	Name     string
	Provider models.Provider
}

// IdentityService maps verified external identities to local accounts,
// provisioning a social account on first sight.
type IdentityService struct {
	users  repositories.UserRepository
	logger *zap.Logger
}

// NewIdentityService creates a new identity service
func NewIdentityService(users repositories.UserRepository, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, logger: logger}
}

// Resolve finds or creates the local account for an external identity.
// An existing local (password) account with the same email blocks the social
// login rather than silently linking the two; the user owns a password and
// must use it.
func (s *IdentityService) Resolve(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if err := utils.ValidateEmail(email); err != nil {
		return nil, ErrInvalidInput.WithCause(err)
	}
	if !identity.Provider.Valid() {
		return nil, ErrInvalidInput.WithDetail("provider", string(identity.Provider))
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if !user.Social {
			return nil, ErrExternalIdentityConflict
		}
		return user, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	user = models.NewSocialUser(socialUsername(identity.Name, email), email, identity.Provider)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			// lost a first-login race for the same identity; the winner's row is ours
			existing, getErr := s.users.GetByEmail(ctx, email)
			if getErr != nil {
				return nil, ErrStoreUnavailable.WithCause(getErr)
			}
			if !existing.Social {
				return nil, ErrExternalIdentityConflict
			}
			return existing, nil
		}
		return nil, ErrStoreUnavailable.WithCause(err)
	}

	s.logger.Info("social account provisioned",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", string(identity.Provider)))
	return user, nil
}

// socialUsername derives a display username for a provisioned social
// account. Social accounts authenticate by email; the username is cosmetic.
func socialUsername(name, email string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
