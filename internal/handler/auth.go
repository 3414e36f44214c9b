package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/linkboard/internal/apperror"
	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/service"
)

// IdentityVerifier checks ID tokens from the configured providers.
// *auth.OIDCVerifier implements it.
type IdentityVerifier interface {
	Verify(ctx context.Context, client, rawIDToken string) (model.UserInfo, error)
	Clients() []auth.Client
}

// SignInService turns a verified profile into a user and a session token.
// *service.AuthService implements it.
type SignInService interface {
	SignIn(ctx context.Context, info model.UserInfo) (*service.AuthResult, error)
}

// AuthHandler manages sessions.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSession → verify a provider ID token, upsert the user, set the cookie
//   - HandleLogout  → clear the session cookie
//   - HandleClients → list the providers the SPA can offer
//
// The provider's sign-in widget runs in the browser. All this handler ever
// sees is the resulting ID token.
type AuthHandler struct {
	verifier     IdentityVerifier
	signIn       SignInService
	maxAge       time.Duration
	secureCookie bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. secureCookie marks the session
// cookie HTTPS-only; it is off in dev mode.
func NewAuthHandler(
	verifier IdentityVerifier,
	signIn SignInService,
	maxAge time.Duration,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		verifier:     verifier,
		signIn:       signIn,
		maxAge:       maxAge,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type sessionRequest struct {
	Client  string `json:"client"`
	IDToken string `json:"idToken"`
}

// HandleSession signs the caller in.
//
// HTTP: POST /auth/session {"client": "google", "idToken": "eyJ..."}
//
// FLOW:
//  1. Verify the ID token against the named provider (signature, audience, expiry)
//  2. Upsert the user on the token's subject
//  3. Issue a session token in the HttpOnly session cookie
//  4. Respond with the profile whoAmI would return
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}
	if req.Client == "" || req.IDToken == "" {
		writeError(w, apperror.ValidationFailed("idToken", "client and idToken are required"))
		return
	}

	// --- Step 1: Verify ---
	info, err := h.verifier.Verify(r.Context(), req.Client, req.IDToken)
	if err != nil {
		h.logger.Warn("id token rejected",
			slog.String("client", req.Client),
			slog.String("error", err.Error()),
		)
		if errors.Is(err, auth.ErrUnknownClient) {
			writeError(w, apperror.ValidationFailed("client", "unknown identity provider"))
			return
		}
		writeError(w, apperror.Unauthenticated("invalid id token"))
		return
	}

	// --- Steps 2 and 3: Upsert and issue ---
	result, err := h.signIn.SignIn(r.Context(), info)
	if err != nil {
		h.logger.Error("sign-in failed",
			slog.String("client", req.Client),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	auth.SetSessionCookie(w, result.Token, h.maxAge, h.secureCookie)

	// --- Step 4: Respond ---
	writeJSON(w, http.StatusOK, model.NewProfile(result.User.ID, result.User.UserInfo))
}

// HandleLogout clears the session cookie.
//
// HTTP: POST /auth/logout
//
// WHY POST AND NOT GET?
// Logout changes state. A GET could be triggered cross-site or by a browser
// prefetching the URL.
//
// Sessions are stateless, so logging out only drops the cookie. The token
// itself stays valid until it expires.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

type clientResponse struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// HandleClients lists the configured identity providers.
//
// HTTP: GET /auth/clients
func (h *AuthHandler) HandleClients(w http.ResponseWriter, r *http.Request) {
	clients := h.verifier.Clients()
	out := make([]clientResponse, len(clients))
	for i, c := range clients {
		out[i] = clientResponse{Name: c.Name, Icon: c.Icon}
	}
	writeJSON(w, http.StatusOK, out)
}
