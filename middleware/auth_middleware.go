package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/token"
	"github.com/moimpay/moim-backend/utils"
)

// AuthMiddleware authenticates requests from their bearer access token. It
// never touches the database: a request is exactly as trustworthy as the
// signature and expiry on the token it carries.
type AuthMiddleware struct {
	codec  *token.Codec
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(codec *token.Codec, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		codec:  codec,
		logger: logger,
	}
}

// RequireAuth rejects requests without a valid bearer access token and
// attaches the verified principal to the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		tokenString := ExtractBearerToken(r)
		if tokenString == "" {
			m.logger.Warn("missing bearer token",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path))
			_ = utils.WriteUnauthorized(w, r.URL.Path, "Missing or invalid authorization")
			return
		}

		verified, err := m.codec.VerifyAccess(tokenString)
		if err != nil {
			m.logger.Warn("access token rejected",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, r.URL.Path, rejectionMessage(err))
			return
		}

		ctx = WithPrincipal(ctx, &Principal{
			Subject: verified.Subject,
			Role:    verified.Role,
		})

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("subject", verified.Subject))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose principal does not carry
// the given role. Must be mounted after RequireAuth.
func (m *AuthMiddleware) RequireRole(role models.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			principal := GetPrincipalFromContext(ctx)
			if principal == nil {
				m.logger.Error("principal not found in context",
					zap.String("request_id", requestID))
				_ = utils.WriteUnauthorized(w, r.URL.Path, "Authentication required")
				return
			}

			if principal.Role != role {
				m.logger.Warn("insufficient permissions",
					zap.String("request_id", requestID),
					zap.String("subject", principal.Subject),
					zap.String("required_role", string(role)),
					zap.String("role", string(principal.Role)))
				_ = utils.WriteForbidden(w, r.URL.Path, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// rejectionMessage picks the response message for a failed verification.
// The distinct messages let a well-behaved client know when to attempt a
// refresh instead of a new login.
func rejectionMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrExpired):
		return "Token expired"
	case errors.Is(err, token.ErrBadSignature):
		return "Invalid token signature"
	case errors.Is(err, token.ErrMissingRole):
		return "Token carries no role"
	default:
		return "Invalid or malformed token"
	}
}

// ExtractBearerToken extracts the Bearer token from the Authorization header
func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
