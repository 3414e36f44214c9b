// Package auth owns the session: who the caller is, for the whole request.
//
// SESSION FLOW:
//  1. The SPA obtains an ID token from a configured identity provider and
//     posts it to /auth/session.
//  2. The server verifies it (oidc.go), upserts the user on the token's
//     subject, and issues a session token into the HttpOnly "session" cookie.
//  3. On every later request, LoadIdentity reads the cookie, validates the
//     token and stores an Identity in the request context.
//  4. GraphQL fields read the Identity; a missing one means "anonymous",
//     never an error by itself.
//
// SESSION TOKEN:
// The cookie value is a JWT (HS256, signed with session_secret). It carries
// the internal user id as "sub" and the provider profile as "profile", so no
// lookup is needed to know who the caller is.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"

	"github.com/sakif/linkboard/internal/model"
)

const issuer = "linkboard"

// Identity is the authenticated caller: internal user id plus the profile
// claims the provider vouched for.
//
// It is built once per request by LoadIdentity and only ever passed by value,
// so nothing downstream can change who the caller is.
type Identity struct {
	UserID int64
	Claims model.UserInfo
}

// SessionTokens issues and validates session tokens.
type SessionTokens struct {
	secret []byte
	maxAge time.Duration
}

// NewSessionTokens creates a SessionTokens with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
func NewSessionTokens(secret string, maxAge time.Duration) (*SessionTokens, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	if maxAge <= 0 {
		return nil, errors.New("auth: session max age must be positive")
	}
	return &SessionTokens{secret: []byte(secret), maxAge: maxAge}, nil
}

// MaxAge is how long an issued session stays valid.
func (s *SessionTokens) MaxAge() time.Duration {
	return s.maxAge
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	jwt.RegisteredClaims
	Profile model.UserInfo `json:"profile"`
}

// Issue signs a session token for identity.
//
// Every token gets a unique id (jti, an xid) so individual sessions can be
// told apart in logs.
func (s *SessionTokens) Issue(identity Identity) (string, error) {
	return s.issueAt(identity, time.Now())
}

func (s *SessionTokens) issueAt(identity Identity, now time.Time) (string, error) {
	c := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(identity.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
			Issuer:    issuer,
		},
		Profile: identity.Claims,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and returns the identity inside it.
//
// VALIDATION CHECKS:
//   - Signature is valid and the algorithm is HS256 (no "none" tokens)
//   - Token is not expired, and has an expiry at all
//   - Issuer is "linkboard"
//   - Subject is a positive integer user id
func (s *SessionTokens) Parse(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("auth: session expired")
		}
		return Identity{}, fmt.Errorf("auth: invalid session: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("auth: invalid session claims")
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("auth: session has no valid subject")
	}

	return Identity{UserID: userID, Claims: c.Profile}, nil
}
