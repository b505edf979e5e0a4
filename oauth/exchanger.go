package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/moimpay/moim-backend/config"
)

// TokenResponse represents the OAuth2 token endpoint response
type TokenResponse struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// CodeExchanger exchanges authorization codes for provider tokens
type CodeExchanger struct {
	cfg        config.OAuthConfig
	httpClient *http.Client
}

// NewCodeExchanger creates a new code exchanger
func NewCodeExchanger(cfg config.OAuthConfig) *CodeExchanger {
	return &CodeExchanger{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{},
		},
	}
}

// ExchangeCode exchanges an authorization code for the provider's ID token
func (e *CodeExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (idToken string, err error) {
	if e.cfg.Domain == "" || e.cfg.ClientID == "" {
		return "", fmt.Errorf("identity provider not configured")
	}

	tokenURL := strings.TrimSuffix(e.cfg.Domain, "/") + "/oauth2/token"
	data := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {e.cfg.ClientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
	}

	if e.cfg.ClientSecret != "" {
		data.Set("client_secret", e.cfg.ClientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp TokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return "", fmt.Errorf("no id_token in response")
	}

	return tokenResp.IDToken, nil
}
