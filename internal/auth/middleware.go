// ABOUTME: HTTP middleware that authenticates requests from the access cookie
// ABOUTME: Verification needs only the public key, so any service can use it

package auth

import (
	"errors"
	"net/http"

	"github.com/murmurhq/murmur/internal/token"
)

// verifyCookie reads the named cookie and verifies it as the expected kind.
// Returns the claims and an error message (empty if successful). The distinct
// messages for missing/expired/invalid are part of the client contract.
func verifyCookie(r *http.Request, verifier *token.Verifier, kind token.Kind, cookieName string) (*token.Claims, string) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return nil, "not authenticated"
	}

	claims, err := verifier.Verify(cookie.Value, kind)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, string(kind) + " token expired"
		}
		return nil, "invalid " + string(kind) + " token"
	}

	return claims, ""
}

// RequireUser creates an HTTP middleware that authenticates the access cookie
// and attaches the subject to the request context. No user lookup happens
// here: services other than the identity service hold only the public key
// and no user table, and ownership checks downstream compare ids directly.
func RequireUser(verifier *token.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, errMsg := verifyCookie(r, verifier, token.KindAccess, AccessCookieName)
			if errMsg != "" {
				writeJSONError(w, http.StatusUnauthorized, errMsg)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), claims.Subject)))
		})
	}
}
