package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/agamify/server/internal/module/user"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserAPI   = "https://api.github.com/user"
	githubEmailsAPI = "https://api.github.com/user/emails"
)

// ProviderConfig holds GitHub OAuth application settings.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Provider abstracts the GitHub OAuth flow for the auth service.
type Provider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Identity(ctx context.Context, token *oauth2.Token) (*user.GithubIdentity, error)
}

// GithubProvider implements the GitHub OAuth flow. The repo scope is
// requested so the delegated token can drive repository imports later.
type GithubProvider struct {
	config *oauth2.Config
}

// NewGithubProvider creates a new GitHub OAuth provider.
func NewGithubProvider(cfg *ProviderConfig) *GithubProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email", "repo"}
	}

	return &GithubProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     github.Endpoint,
		},
	}
}

// AuthURL returns the GitHub authorization URL for the given state.
func (p *GithubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange exchanges the authorization code for tokens.
func (p *GithubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return token, nil
}

// Identity fetches the GitHub account behind the token.
func (p *GithubProvider) Identity(ctx context.Context, token *oauth2.Token) (*user.GithubIdentity, error) {
	client := p.config.Client(ctx, token)

	resp, err := client.Get(githubUserAPI)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api error: %s", resp.Status)
	}

	var account struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}

	// A private email is not in the user payload; fetch it separately.
	email := account.Email
	if email == "" {
		email, err = p.primaryEmail(client)
		if err != nil {
			return nil, err
		}
	}

	name := account.Name
	if name == "" {
		name = account.Login
	}

	return &user.GithubIdentity{
		ID:        strconv.FormatInt(account.ID, 10),
		Login:     account.Login,
		Name:      name,
		Email:     email,
		AvatarURL: account.AvatarURL,
	}, nil
}

// primaryEmail fetches the primary verified email for the account.
func (p *GithubProvider) primaryEmail(client *http.Client) (string, error) {
	resp, err := client.Get(githubEmailsAPI)
	if err != nil {
		return "", fmt.Errorf("get emails: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github emails api error: %s", resp.Status)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return "", fmt.Errorf("decode emails: %w", err)
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, nil
		}
	}

	return "", ErrNoVerifiedEmail
}
