package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/config"
	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/oauth"
	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/utils"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName   = "oauth_state"
	stateCookieMaxAge = 600
)

// CodeExchanger exchanges OAuth2 authorization codes for provider ID tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (idToken string, err error)
}

// IDTokenValidator validates provider ID tokens against the provider's keys.
type IDTokenValidator interface {
	ValidateIDToken(ctx context.Context, token string) (*oauth.VerifiedIdentity, error)
}

// Handler drives the OAuth2 login flow: provider redirect, callback, code
// exchange, ID-token validation, then local account bridging and session
// issue. The refresh token leaves here only as an HTTP-only cookie; the
// access token rides the frontend redirect as a query parameter.
type Handler struct {
	cfg        *config.Config
	exchanger  CodeExchanger
	validator  IDTokenValidator
	identities *services.IdentityService
	sessions   *services.SessionService
	logger     *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(cfg *config.Config, exchanger CodeExchanger, validator IDTokenValidator, identities *services.IdentityService, sessions *services.SessionService, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:        cfg,
		exchanger:  exchanger,
		validator:  validator,
		identities: identities,
		sessions:   sessions,
		logger:     logger,
	}
}

// HandleLogin redirects to the identity provider's authorization endpoint
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.OAuthConfigured() {
		h.logger.Error("identity provider not configured")
		_ = utils.WriteInternalServerError(w, r.URL.Path, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, r.URL.Path, "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.OAuth.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	})

	authURL := buildAuthURL(h.cfg.OAuth.Domain, h.cfg.OAuth.ClientID, h.cfg.OAuth.RedirectURI, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback exchanges the authorization code, validates the provider ID
// token, bridges the identity to a local account, and issues a session
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, r.URL.Path, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, r.URL.Path, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, r.URL.Path, "Invalid or expired state", nil)
		return
	}
	h.clearStateCookie(w)

	idToken, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.OAuth.RedirectURI)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, r.URL.Path, "Authentication failed")
		return
	}

	verified, err := h.validator.ValidateIDToken(r.Context(), idToken)
	if err != nil {
		h.logger.Warn("id token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, r.URL.Path, "Invalid token")
		return
	}

	user, err := h.identities.Resolve(r.Context(), services.ExternalIdentity{
		Email:    verified.Email,
		Name:     verified.Name,
		Provider: models.ProviderOf(h.cfg.OAuth.Provider),
	})
	if err != nil {
		if services.IsConflictError(err) {
			// a local password account owns this email; send the user
			// back to the frontend with the reason, not a raw 409
			h.redirectWithError(w, r, "account_conflict")
			return
		}
		h.logger.Error("identity bridge failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, r.URL.Path, "Authentication failed")
		return
	}

	pair, err := h.sessions.Issue(r.Context(), user)
	if err != nil {
		h.logger.Error("session issue failed", zap.Error(err))
		_ = utils.WriteInternalServerError(w, r.URL.Path, "Authentication failed")
		return
	}

	h.logger.Info("social login successful",
		zap.String("user_id", user.ID.String()),
		zap.String("provider", string(user.Provider)))

	utils.SetRefreshCookie(w, pair.RefreshToken, pair.RefreshTTL)
	http.Redirect(w, r, h.frontendURL(url.Values{"accessToken": {pair.AccessToken}}), http.StatusFound)
}

func (h *Handler) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.OAuth.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) redirectWithError(w http.ResponseWriter, r *http.Request, reason string) {
	http.Redirect(w, r, h.frontendURL(url.Values{"error": {reason}}), http.StatusFound)
}

func (h *Handler) frontendURL(params url.Values) string {
	base := h.cfg.OAuth.FrontEndURL
	if base == "" {
		base = "/"
	}
	if len(params) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + params.Encode()
}

func buildAuthURL(domain, clientID, redirectURI, state string) string {
	base := strings.TrimSuffix(domain, "/") + "/oauth2/authorize"
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	return base + "?" + params.Encode()
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
