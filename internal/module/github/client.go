package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/agamify/server/internal/shared/config"
	"github.com/agamify/server/internal/shared/metrics"
)

// Repo is a repository as returned by the GitHub API.
type Repo struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"full_name"`
	Description   *string `json:"description"`
	Private       bool    `json:"private"`
	HTMLURL       string  `json:"html_url"`
	CloneURL      string  `json:"clone_url"`
	DefaultBranch string  `json:"default_branch"`
	Owner         Owner   `json:"owner"`
}

// Owner is the owning account of a GitHub repository.
type Owner struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// Branch is a branch as returned by the GitHub API.
type Branch struct {
	Name      string `json:"name"`
	Protected bool   `json:"protected"`
	Commit    Commit `json:"commit"`
}

// Commit is the head commit of a branch.
type Commit struct {
	SHA string `json:"sha"`
}

// Client issues authenticated read calls against the GitHub REST API.
// It performs no retries and no caching; every call reflects remote state
// at call time.
type Client interface {
	GetRepository(ctx context.Context, fullName, token string) (*Repo, error)
	ListBranches(ctx context.Context, fullName, token string) ([]Branch, error)
	GetLanguages(ctx context.Context, fullName, token string) (map[string]int64, error)
	ListUserRepositories(ctx context.Context, token string) ([]Repo, error)
}

type apiClient struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient creates a new GitHub API client.
func NewClient(cfg *config.GitHubConfig, m *metrics.Metrics) Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &apiClient{
		baseURL: cfg.APIBaseURL,
		http: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
			Timeout: timeout,
		},
		metrics: m,
	}
}

func (c *apiClient) GetRepository(ctx context.Context, fullName, token string) (*Repo, error) {
	var repo Repo
	if err := c.get(ctx, "get_repository", c.repoPath(fullName, ""), token, &repo); err != nil {
		return nil, err
	}
	if repo.ID == 0 || repo.Name == "" {
		return nil, fmt.Errorf("%w: malformed repository payload for %q", ErrUnavailable, fullName)
	}
	return &repo, nil
}

func (c *apiClient) ListBranches(ctx context.Context, fullName, token string) ([]Branch, error) {
	var branches []Branch
	if err := c.get(ctx, "list_branches", c.repoPath(fullName, "/branches"), token, &branches); err != nil {
		return nil, err
	}
	return branches, nil
}

func (c *apiClient) GetLanguages(ctx context.Context, fullName, token string) (map[string]int64, error) {
	var languages map[string]int64
	if err := c.get(ctx, "get_languages", c.repoPath(fullName, "/languages"), token, &languages); err != nil {
		return nil, err
	}
	return languages, nil
}

func (c *apiClient) ListUserRepositories(ctx context.Context, token string) ([]Repo, error) {
	var repos []Repo
	if err := c.get(ctx, "list_user_repositories", "/user/repos?sort=updated&per_page=100", token, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *apiClient) repoPath(fullName, suffix string) string {
	return "/repos/" + fullName + suffix
}

// get issues one authenticated GET and decodes the JSON body into out.
// Responses that are not 2xx, fail transport, or do not match the expected
// shape are reported as unavailable; 401 and 403 surface as auth rejection.
func (c *apiClient) get(ctx context.Context, operation, path, token string, out any) error {
	fullURL := c.baseURL + path
	if _, err := url.Parse(fullURL); err != nil {
		return fmt.Errorf("%w: invalid url %q", ErrUnavailable, fullURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "Agamify-App")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if c.metrics != nil {
		c.metrics.RecordGitHubRequest(operation, resp.StatusCode, time.Since(start))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned %s", ErrAuthRejected, operation, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s returned %s", ErrUnavailable, operation, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, operation, err)
	}
	return nil
}
