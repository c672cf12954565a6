package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/agamify/server/internal/module/user"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginResponse is returned when a login flow is initiated.
type LoginResponse struct {
	AuthURL string `json:"auth_url"`
	State   string `json:"state"`
}

// TokenResponse carries the issued access token.
type TokenResponse struct {
	AccessToken string     `json:"access_token"`
	TokenType   string     `json:"token_type"`
	ExpiresAt   time.Time  `json:"expires_at"`
	User        *user.User `json:"user"`
}

// Service runs the GitHub login flow: it redirects to GitHub, exchanges
// the callback code, upserts the user, and issues an access token. The
// delegated GitHub token is stored on the user record for later imports.
type Service struct {
	provider Provider
	states   StateStore
	users    user.Repository
	jwt      *JWTManager
	logger   *zap.Logger
}

// NewService creates a new auth service.
func NewService(provider Provider, states StateStore, users user.Repository, jwt *JWTManager, logger *zap.Logger) *Service {
	return &Service{
		provider: provider,
		states:   states,
		users:    users,
		jwt:      jwt,
		logger:   logger,
	}
}

// InitiateLogin starts the GitHub OAuth flow.
func (s *Service) InitiateLogin(ctx context.Context, redirectTo string) (*LoginResponse, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}

	if err := s.states.Set(ctx, state, redirectTo); err != nil {
		return nil, fmt.Errorf("store state: %w", err)
	}

	return &LoginResponse{
		AuthURL: s.provider.AuthURL(state),
		State:   state,
	}, nil
}

// CompleteLogin finishes the OAuth flow for a callback. Returns the token
// response and the redirect target captured at initiation.
func (s *Service) CompleteLogin(ctx context.Context, state, code string) (*TokenResponse, string, error) {
	redirectTo, err := s.states.Get(ctx, state)
	if err != nil {
		return nil, "", ErrInvalidState
	}
	defer s.states.Delete(ctx, state)

	oauthToken, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, "", err
	}

	identity, err := s.provider.Identity(ctx, oauthToken)
	if err != nil {
		return nil, "", err
	}

	u, err := s.users.UpsertFromGithub(ctx, identity, oauthToken.AccessToken)
	if err != nil {
		return nil, "", fmt.Errorf("upsert user: %w", err)
	}

	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(u)
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("user logged in",
		zap.String("user_id", u.ID.String()),
		zap.String("github_login", u.GithubLogin()))

	return &TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		User:        u,
	}, redirectTo, nil
}

// ValidateAccessToken validates a token and returns its claims.
func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	return s.jwt.ValidateAccessToken(token)
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*user.User, error) {
	return s.users.GetByID(ctx, id)
}

func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
