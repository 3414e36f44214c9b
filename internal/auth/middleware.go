package auth

import (
	"context"
	"net/http"
	"time"
)

// CookieName is the session cookie.
const CookieName = "session"

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so nobody else can
// read or overwrite the identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// LoadIdentity reads the session cookie and, when it holds a valid session,
// stores the caller's Identity in the request context.
//
// It never blocks a request: a missing, expired or forged cookie simply
// leaves the request anonymous. Whether anonymous callers may do something
// is decided per GraphQL field.
func LoadIdentity(tokens *SessionTokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
				if identity, err := tokens.Parse(cookie.Value); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), identity))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the caller's identity.
//
// Returns (Identity{}, false) for anonymous requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok && identity.UserID > 0
}

// SetSessionCookie stores a session token in the HttpOnly session cookie.
// SameSite=Lax keeps the cookie off cross-site POSTs.
func SetSessionCookie(w http.ResponseWriter, token string, maxAge time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to drop the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
