package utils

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token. HTTP-only and
// SameSite=None: the frontend lives on another origin and scripts must never
// read the value.
const RefreshCookieName = "refresh_token"

// SetRefreshCookie attaches the refresh token to the response
func SetRefreshCookie(w http.ResponseWriter, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ClearRefreshCookie expires the refresh cookie
func ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// ReadRefreshCookie returns the refresh token cookie value, empty if absent
func ReadRefreshCookie(r *http.Request) string {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
