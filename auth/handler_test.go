package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/moimpay/moim-backend/config"
	"github.com/moimpay/moim-backend/models"
	"github.com/moimpay/moim-backend/oauth"
	"github.com/moimpay/moim-backend/repositories"
	"github.com/moimpay/moim-backend/services"
	"github.com/moimpay/moim-backend/token"
	"github.com/moimpay/moim-backend/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubExchanger struct {
	idToken     string
	err         error
	gotCode     string
	gotRedirect string
}

func (s *stubExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (string, error) {
	s.gotCode = code
	s.gotRedirect = redirectURI
	return s.idToken, s.err
}

type stubValidator struct {
	identity *oauth.VerifiedIdentity
	err      error
}

func (s *stubValidator) ValidateIDToken(ctx context.Context, idToken string) (*oauth.VerifiedIdentity, error) {
	return s.identity, s.err
}

type memUsers struct {
	mu    sync.Mutex
	users []*models.User
}

func (m *memUsers) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	m.users = append(m.users, user)
	return nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type memStore struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemStore() *memStore {
	return &memStore{values: make(map[string]string)}
}

func (m *memStore) Get(ctx context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[userID]
	if !ok {
		return "", repositories.ErrNotFound
	}
	return v, nil
}

func (m *memStore) CompareAndSwap(ctx context.Context, userID, expected, newValue string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values[userID] != expected {
		return repositories.ErrConflict
	}
	m.values[userID] = newValue
	return nil
}

func (m *memStore) Clear(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, userID)
	return nil
}

type oauthFixture struct {
	handler   *Handler
	exchanger *stubExchanger
	validator *stubValidator
	users     *memUsers
	store     *memStore
	codec     *token.Codec
}

func newOAuthFixture(t *testing.T) *oauthFixture {
	t.Helper()

	cfg := &config.Config{
		OAuth: config.OAuthConfig{
			Provider:    "google",
			Domain:      "https://idp.example.com",
			ClientID:    "moim-client",
			RedirectURI: "https://api.example.com/auth/callback",
			FrontEndURL: "https://app.example.com",
		},
	}

	codec, err := token.NewCodec(testSecret)
	require.NoError(t, err)

	logger := zap.NewNop()
	users := &memUsers{}
	store := newMemStore()
	sessions := services.NewSessionService(codec, store, config.JWTConfig{
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, logger)
	identities := services.NewIdentityService(users, logger)

	exchanger := &stubExchanger{idToken: "provider-id-token"}
	validator := &stubValidator{identity: &oauth.VerifiedIdentity{
		Email:         "jane@example.com",
		EmailVerified: true,
		Name:          "Jane Doe",
	}}

	return &oauthFixture{
		handler:   NewHandler(cfg, exchanger, validator, identities, sessions, logger),
		exchanger: exchanger,
		validator: validator,
		users:     users,
		store:     store,
		codec:     codec,
	}
}

func cookieNamed(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func callbackRequest(code, state, cookieState string) *http.Request {
	target := "/auth/callback"
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: StateCookieName, Value: cookieState})
	}
	return req
}

func TestHandleLogin(t *testing.T) {
	t.Run("redirects to provider with state cookie", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

		require.Equal(t, http.StatusFound, rec.Code)

		stateCookie := cookieNamed(t, rec, StateCookieName)
		require.NotNil(t, stateCookie)
		assert.NotEmpty(t, stateCookie.Value)
		assert.True(t, stateCookie.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, stateCookie.SameSite)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "idp.example.com", location.Host)
		assert.Equal(t, "/oauth2/authorize", location.Path)
		assert.Equal(t, "code", location.Query().Get("response_type"))
		assert.Equal(t, "moim-client", location.Query().Get("client_id"))
		assert.Equal(t, "https://api.example.com/auth/callback", location.Query().Get("redirect_uri"))
		assert.Equal(t, "openid email profile", location.Query().Get("scope"))
		assert.Equal(t, stateCookie.Value, location.Query().Get("state"))
	})

	t.Run("fails when provider not configured", func(t *testing.T) {
		fixture := newOAuthFixture(t)
		fixture.handler.cfg.OAuth.Domain = ""

		rec := httptest.NewRecorder()
		fixture.handler.HandleLogin(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("provisions account and issues session", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "state-1", "state-1"))

		require.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "auth-code", fixture.exchanger.gotCode)
		assert.Equal(t, "https://api.example.com/auth/callback", fixture.exchanger.gotRedirect)

		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "app.example.com", location.Host)

		accessToken := location.Query().Get("accessToken")
		require.NotEmpty(t, accessToken)
		verified, err := fixture.codec.VerifyAccess(accessToken)
		require.NoError(t, err)
		assert.Equal(t, "jane@example.com", verified.Subject)
		assert.Equal(t, models.RoleUser, verified.Role)

		user, err := fixture.users.GetByEmail(context.Background(), "jane@example.com")
		require.NoError(t, err)
		assert.True(t, user.Social)
		assert.Equal(t, models.ProviderGoogle, user.Provider)

		refreshCookie := cookieNamed(t, rec, utils.RefreshCookieName)
		require.NotNil(t, refreshCookie)
		stored, err := fixture.store.Get(context.Background(), user.ID.String())
		require.NoError(t, err)
		assert.Equal(t, stored, refreshCookie.Value)

		stateCookie := cookieNamed(t, rec, StateCookieName)
		require.NotNil(t, stateCookie)
		assert.Negative(t, stateCookie.MaxAge)
	})

	t.Run("reuses existing social account", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "s", "s"))
		require.Equal(t, http.StatusFound, rec.Code)

		rec = httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "s2", "s2"))
		require.Equal(t, http.StatusFound, rec.Code)

		fixture.users.mu.Lock()
		defer fixture.users.mu.Unlock()
		assert.Len(t, fixture.users.users, 1)
	})

	t.Run("local account with same email redirects with conflict", func(t *testing.T) {
		fixture := newOAuthFixture(t)
		local := models.NewLocalUser("jane", "jane@example.com", "$2a$04$notarealhash", "Jane")
		require.NoError(t, fixture.users.Create(context.Background(), local))

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "s", "s"))

		require.Equal(t, http.StatusFound, rec.Code)
		location, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "app.example.com", location.Host)
		assert.Equal(t, "account_conflict", location.Query().Get("error"))
		assert.Empty(t, location.Query().Get("accessToken"))
		assert.Nil(t, cookieNamed(t, rec, utils.RefreshCookieName))
	})

	t.Run("missing code is rejected", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("", "s", "s"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing state is rejected", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "", "s"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("state mismatch is rejected", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "attacker-state", "real-state"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "", fixture.exchanger.gotCode)
	})

	t.Run("missing state cookie is rejected", func(t *testing.T) {
		fixture := newOAuthFixture(t)

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "s", ""))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("failed code exchange is unauthorized", func(t *testing.T) {
		fixture := newOAuthFixture(t)
		fixture.exchanger.err = errors.New("token exchange failed: status 400")
		fixture.exchanger.idToken = ""

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("bad-code", "s", "s"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid id token is unauthorized", func(t *testing.T) {
		fixture := newOAuthFixture(t)
		fixture.validator.identity = nil
		fixture.validator.err = oauth.ErrInvalidToken

		rec := httptest.NewRecorder()
		fixture.handler.HandleCallback(rec, callbackRequest("auth-code", "s", "s"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
