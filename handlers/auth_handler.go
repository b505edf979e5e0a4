package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/middleware"
	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/utils"
)

// SessionResponse is the body returned by login and refresh
type SessionResponse struct {
	AccessToken       string       `json:"accessToken"`
	RefreshTTLSeconds int64        `json:"refreshTtlSeconds"`
	User              *models.User `json:"user,omitempty"`
}

// AuthHandler handles local signup, login, logout, and principal echo
type AuthHandler struct {
	users    *services.UserService
	sessions *services.SessionService
	logger   *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(users *services.UserService, sessions *services.SessionService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		logger:   logger,
	}
}

// HandleSignup handles POST /api/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req services.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, r.URL.Path, "Invalid request body", nil)
		return
	}

	user, err := h.users.Signup(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, user)
}

// HandleLogin handles POST /api/login. On success the refresh token travels
// only in the HTTP-only cookie; the body carries the access token.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, r.URL.Path, "Invalid request body", nil)
		return
	}

	user, err := h.users.Login(r.Context(), &req)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	pair, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	h.logger.Info("login successful",
		zap.String("user_id", user.ID.String()),
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))

	utils.SetRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL)
	_ = utils.WriteOK(w, SessionResponse{
		AccessToken:       pair.AccessToken,
		RefreshTTLSeconds: int64(pair.RefreshTTL.Seconds()),
		User:              user,
	})
}

// HandleLogout handles POST /api/logout (authenticated)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, r.URL.Path, "Authentication required")
		return
	}

	user, err := h.users.GetBySubject(r.Context(), principal.Subject)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}
	if err := h.sessions.Revoke(r.Context(), user); err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	utils.ClearRefreshCookie(w)
	utils.WriteNoContent(w)
}

// HandleMe handles GET /api/auth/me (authenticated)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	principal := middleware.GetPrincipalFromContext(r.Context())
	if principal == nil {
		_ = utils.WriteUnauthorized(w, r.URL.Path, "Authentication required")
		return
	}

	user, err := h.users.GetBySubject(r.Context(), principal.Subject)
	if err != nil {
		HandleServiceError(w, r, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}
