package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/linkboard/internal/auth"
	"github.com/sakif/linkboard/internal/model"
	"github.com/sakif/linkboard/internal/repository"
)

// SessionIssuer signs session tokens. *auth.SessionTokens implements it.
type SessionIssuer interface {
	Issue(identity auth.Identity) (string, error)
}

// AuthService handles sign-in. It turns a verified identity into a board
// user and a session:
//
//	AuthHandler (HTTP) → AuthService → repository (upsert on sub)
//	                                 ↘ SessionTokens (signed cookie value)
//
// Verifying the identity itself (ID token signature, audience, expiry) is the
// auth package's job; by the time SignIn runs the profile is trusted.
type AuthService struct {
	store  repository.Store
	tokens SessionIssuer
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(store repository.Store, tokens SessionIssuer, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		logger: logger,
	}
}

// AuthResult bundles the stored user and the issued session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// SignIn upserts the user on info.Sub and issues a session for them.
//
// Every sign-in refreshes the stored profile (email, names, picture, locale)
// from the provider; the internal id and the board settings stay.
func (s *AuthService) SignIn(ctx context.Context, info model.UserInfo) (*AuthResult, error) {
	if info.Sub == "" {
		return nil, fmt.Errorf("service/auth: identity has no subject")
	}

	session := s.store.NewSession()
	defer session.Close()

	tx, err := session.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	defer tx.Rollback()

	user := &model.User{UserInfo: info}
	if err := tx.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (sub=%s): %w", info.Sub, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user signed in",
		slog.Int64("userID", user.ID),
		slog.String("sub", info.Sub),
	)

	token, err := s.tokens.Issue(auth.Identity{UserID: user.ID, Claims: info})
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session for user %d: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}
