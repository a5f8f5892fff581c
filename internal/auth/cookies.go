// ABOUTME: Cookie transport for session tokens
// ABOUTME: Maps access/refresh tokens to scoped, http-only, same-site cookies

package auth

import (
	"net/http"
	"time"
)

// Cookie names and paths. The refresh cookie is scoped to the one endpoint
// that needs it, which limits its exposure to exactly that path.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	AccessCookiePath  = "/"
	RefreshCookiePath = "/auth/refresh"
)

// CookiePolicy decides attributes for session cookies. MaxAge follows each
// token's TTL so the browser drops the cookie when the token dies.
type CookiePolicy struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secure     bool
}

// SetAccess writes the access token cookie, scoped to the whole origin.
func (p CookiePolicy) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    token,
		Path:     AccessCookiePath,
		MaxAge:   int(p.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetPair writes both session cookies. The refresh cookie is restricted to
// the refresh endpoint path.
func (p CookiePolicy) SetPair(w http.ResponseWriter, accessToken, refreshToken string) {
	p.SetAccess(w, accessToken)
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     RefreshCookiePath,
		MaxAge:   int(p.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires both cookies by name and path with no value. The remaining
// attributes mirror the set path: browsers match cookies on their full
// attribute set, and a mismatched expiry may not clear the original.
func (p CookiePolicy) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     AccessCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     RefreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
