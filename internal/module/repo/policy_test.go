package repo

import (
	"context"
	"testing"

	"github.com/agamify/server/internal/module/github"
	"github.com/agamify/server/internal/module/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ownerPrincipal(login string) *user.User {
	return &user.User{GithubUsername: &login}
}

func TestOwnerOnlyPolicyAdmitsOwner(t *testing.T) {
	client := new(mockGithubClient)
	client.On("GetRepository", mock.Anything, "alice/web-editor", "tok").
		Return(&github.Repo{
			ID:       42,
			Name:     "web-editor",
			FullName: "alice/web-editor",
			Owner:    github.Owner{Login: "alice"},
		}, nil)

	policy := NewOwnerOnlyPolicy(client)
	err := policy.Authorize(context.Background(), ownerPrincipal("alice"), "alice/web-editor", "tok")
	assert.NoError(t, err)
}

func TestOwnerOnlyPolicyRejectsNonOwner(t *testing.T) {
	client := new(mockGithubClient)
	client.On("GetRepository", mock.Anything, "bob/web-editor", "tok").
		Return(&github.Repo{
			ID:       42,
			Name:     "web-editor",
			FullName: "bob/web-editor",
			Owner:    github.Owner{Login: "bob"},
		}, nil)

	policy := NewOwnerOnlyPolicy(client)
	err := policy.Authorize(context.Background(), ownerPrincipal("alice"), "bob/web-editor", "tok")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotOwner)
	var owned *OwnershipError
	require.ErrorAs(t, err, &owned)
	assert.Equal(t, "bob", owned.Owner)
}

func TestOwnerOnlyPolicyDeniesWhenFetchFails(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unavailable", github.ErrUnavailable},
		{"auth rejected", github.ErrAuthRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockGithubClient)
			client.On("GetRepository", mock.Anything, "alice/web-editor", "tok").
				Return(nil, tt.err)

			policy := NewOwnerOnlyPolicy(client)
			err := policy.Authorize(context.Background(), ownerPrincipal("alice"), "alice/web-editor", "tok")

			assert.ErrorIs(t, err, ErrNotOwner)
			var owned *OwnershipError
			require.ErrorAs(t, err, &owned)
			assert.Empty(t, owned.Owner)
		})
	}
}

func TestOwnerOnlyPolicyPassesThroughCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := new(mockGithubClient)
	client.On("GetRepository", mock.Anything, "alice/web-editor", "tok").
		Return(nil, context.Canceled)

	policy := NewOwnerOnlyPolicy(client)
	err := policy.Authorize(ctx, ownerPrincipal("alice"), "alice/web-editor", "tok")

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrNotOwner)
}

func TestOwnerOnlyPolicyRejectsPrincipalWithoutGithubLogin(t *testing.T) {
	client := new(mockGithubClient)
	client.On("GetRepository", mock.Anything, "alice/web-editor", "tok").
		Return(&github.Repo{
			ID:    42,
			Name:  "web-editor",
			Owner: github.Owner{Login: "alice"},
		}, nil)

	policy := NewOwnerOnlyPolicy(client)
	err := policy.Authorize(context.Background(), &user.User{}, "alice/web-editor", "tok")
	assert.ErrorIs(t, err, ErrNotOwner)
}
