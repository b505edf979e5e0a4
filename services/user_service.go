package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/utils"
)

// SignupRequest carries a local account registration
type SignupRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=4,max=21"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"required,email"`
	Nickname string `json:"nickname" validate:"required,max=50"`
}

// LoginRequest carries local credentials
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserService handles local account registration and credential checks
type UserService struct {
	users     repositories.UserRepository
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(users repositories.UserRepository, txManager repositories.TransactionManager, logger *zap.Logger) *UserService {
	return &UserService{
		users:     users,
		txManager: txManager,
		logger:    logger,
	}
}

// Signup registers a local account. Username and email must both be unused;
// the uniqueness check and the insert run in one transaction so concurrent
// signups cannot both succeed, and the unique constraints backstop the check.
func (s *UserService) Signup(ctx context.Context, req *SignupRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		var validationErr *utils.ValidationError
		if errors.As(err, &validationErr) {
			return nil, ErrInvalidInput.WithDetail("fields", validationErr.Fields)
		}
		return nil, ErrInvalidInput.WithCause(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrInternal.WithCause(err)
	}

	user := models.NewLocalUser(req.Username, strings.ToLower(req.Email), string(hash), req.Nickname)

	err = WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		if _, err := s.users.GetByUsername(ctx, user.Username); err == nil {
			return ErrDuplicateUsername
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return ErrStoreUnavailable.WithCause(err)
		}
		if _, err := s.users.GetByEmail(ctx, user.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, repositories.ErrNotFound) {
			return ErrStoreUnavailable.WithCause(err)
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrConflict) {
				return ErrDuplicateUsername
			}
			return ErrStoreUnavailable.WithCause(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return user, nil
}

// Login checks local credentials. Every failure path returns the same
// ErrInvalidCredentials so responses never reveal whether the username
// exists. Social accounts have no local password and cannot log in here.
func (s *UserService) Login(ctx context.Context, req *LoginRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	if user.Social || user.PasswordHash == "" {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// GetBySubject resolves an authenticated principal's subject to its account.
func (s *UserService) GetBySubject(ctx context.Context, subject string) (*models.User, error) {
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
			return nil, ErrUserNotFound
		}
		return nil, ErrStoreUnavailable.WithCause(err)
	}
	return user, nil
}
