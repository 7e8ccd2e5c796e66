package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"chameleon-backend/internal/github_client"

	"go.uber.org/zap"
)

// AuthService wraps the identity-provider exchange: an authorization code
// goes in, a signed session token comes out.
type AuthService interface {
	AuthorizeURL() (string, error)
	Login(ctx context.Context, code string) (string, time.Time, string, error)
}

type authService struct {
	github   *github_client.Client
	sessions Sessions
	logger   *zap.Logger
}

func NewAuthService(github *github_client.Client, sessions Sessions, logger *zap.Logger) AuthService {
	return &authService{github: github, sessions: sessions, logger: logger}
}

func (s *authService) AuthorizeURL() (string, error) {
	return s.github.AuthorizeURL()
}

// Login exchanges the authorization code for a verified identity and issues
// a session token bound to its hash. Returns token, expiry and the display
// handle.
func (s *authService) Login(ctx context.Context, code string) (string, time.Time, string, error) {
	accessToken, err := s.github.ExchangeCode(ctx, code)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	user, err := s.github.FetchUser(ctx, accessToken)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to fetch user identity: %w", err)
	}

	token, expiresAt, err := s.sessions.Issue(strconv.FormatInt(user.ID, 10), user.Login)
	if err != nil {
		return "", time.Time{}, "", fmt.Errorf("failed to issue session token: %w", err)
	}

	s.logger.Info("User logged in successfully.", zap.String("login", user.Login))
	return token, expiresAt, user.Login, nil
}
