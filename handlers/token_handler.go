package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/middleware"
	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/utils"
)

// RefreshRequest is the optional body for POST /api/token/refresh. Cookie
// and bearer header take precedence; the body exists for clients that
// cannot carry cookies.
type RefreshRequest struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// TokenHandler handles refresh-token rotation
type TokenHandler struct {
	refresh *services.RefreshService
	logger  *zap.Logger
}

// NewTokenHandler creates a new TokenHandler
func NewTokenHandler(refresh *services.RefreshService, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{
		refresh: refresh,
		logger:  logger,
	}
}

// HandleRefresh handles POST /api/token/refresh. The expired access token
// arrives as a bearer header or in the body; the refresh token arrives in
// the HTTP-only cookie with a body fallback.
func (h *TokenHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var body RefreshRequest
	if r.Body != nil {
		// absent or empty body is fine
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	accessToken := middleware.ExtractBearerToken(r)
	if accessToken == "" {
		accessToken = body.AccessToken
	}
	refreshToken := utils.ReadRefreshCookie(r)
	if refreshToken == "" {
		refreshToken = body.RefreshToken
	}
	if refreshToken == "" {
		_ = utils.WriteUnauthorized(w, r.URL.Path, "Missing refresh token")
		return
	}

	pair, err := h.refresh.Refresh(r.Context(), accessToken, refreshToken)
	if err != nil {
		if errors.Is(err, services.ErrReuseDetected) {
			// the session is gone server-side; take the cookie with it
			utils.ClearRefreshCookie(w)
		}
		HandleServiceError(w, r, err, h.logger)
		return
	}

	utils.SetRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL)
	_ = utils.WriteOK(w, SessionResponse{
		AccessToken:       pair.AccessToken,
		RefreshTTLSeconds: int64(pair.RefreshTTL.Seconds()),
	})
}
