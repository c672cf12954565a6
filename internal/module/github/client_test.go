package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agamify/server/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(&config.GitHubConfig{
		APIBaseURL:     srv.URL,
		RequestTimeout: 5 * time.Second,
	}, nil)
}

func TestGetRepository(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/alice-gh/demo", r.URL.Path)
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		assert.Equal(t, "Agamify-App", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 42,
			"name": "demo",
			"full_name": "alice-gh/demo",
			"private": false,
			"html_url": "https://github.com/alice-gh/demo",
			"clone_url": "https://github.com/alice-gh/demo.git",
			"default_branch": "main",
			"owner": {"id": 7, "login": "alice-gh", "type": "User"}
		}`))
	})

	repo, err := client.GetRepository(context.Background(), "alice-gh/demo", "token-123")
	require.NoError(t, err)
	assert.Equal(t, int64(42), repo.ID)
	assert.Equal(t, "demo", repo.Name)
	assert.Equal(t, "alice-gh", repo.Owner.Login)
	assert.Equal(t, "main", repo.DefaultBranch)
}

func TestGetRepositoryAuthRejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.GetRepository(context.Background(), "alice-gh/demo", "bad-token")
		assert.ErrorIs(t, err, ErrAuthRejected, "status %d", status)
	}
}

func TestGetRepositoryUnavailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetRepository(context.Background(), "alice-gh/demo", "token")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestGetRepositoryMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `<html>rate limited</html>`},
		{name: "wrong shape", body: `{"message": "ok"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			_, err := client.GetRepository(context.Background(), "alice-gh/demo", "token")
			assert.ErrorIs(t, err, ErrUnavailable)
		})
	}
}

func TestListBranches(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/alice-gh/demo/branches", r.URL.Path)
		w.Write([]byte(`[
			{"name": "main", "protected": true, "commit": {"sha": "abc123"}},
			{"name": "dev", "protected": false, "commit": {"sha": "def456"}}
		]`))
	})

	branches, err := client.ListBranches(context.Background(), "alice-gh/demo", "token")
	require.NoError(t, err)
	require.Len(t, branches, 2)
	assert.Equal(t, "main", branches[0].Name)
	assert.True(t, branches[0].Protected)
	assert.Equal(t, "abc123", branches[0].Commit.SHA)
}

func TestGetLanguages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/alice-gh/demo/languages", r.URL.Path)
		w.Write([]byte(`{"TypeScript": 51234, "CSS": 812, "Go": 99}`))
	})

	languages, err := client.GetLanguages(context.Background(), "alice-gh/demo", "token")
	require.NoError(t, err)
	assert.Equal(t, int64(51234), languages["TypeScript"])
	assert.Len(t, languages, 3)
}

func TestListUserRepositories(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/repos", r.URL.Path)
		w.Write([]byte(`[{"id": 1, "name": "one", "full_name": "alice-gh/one",
			"owner": {"id": 7, "login": "alice-gh"}}]`))
	})

	repos, err := client.ListUserRepositories(context.Background(), "token")
	require.NoError(t, err)
	require.Len(t, repos, 1)
	assert.Equal(t, "alice-gh/one", repos[0].FullName)
}

func TestContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := client.GetRepository(ctx, "alice-gh/demo", "token")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
