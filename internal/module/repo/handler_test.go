package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agamify/server/internal/module/github"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Import(ctx context.Context, principalID uuid.UUID, ref *RepoRef) (*Repository, error) {
	args := m.Called(ctx, principalID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Repository), args.Error(1)
}

func (m *mockService) ListImported(ctx context.Context, principalID uuid.UUID) ([]*Repository, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Repository), args.Error(1)
}

func (m *mockService) Get(ctx context.Context, principalID, repoID uuid.UUID) (*Repository, error) {
	args := m.Called(ctx, principalID, repoID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Repository), args.Error(1)
}

func (m *mockService) Delete(ctx context.Context, principalID, repoID uuid.UUID) error {
	args := m.Called(ctx, principalID, repoID)
	return args.Error(0)
}

func (m *mockService) ListGithubRepositories(ctx context.Context, principalID uuid.UUID) ([]github.Repo, error) {
	args := m.Called(ctx, principalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]github.Repo), args.Error(1)
}

func (m *mockService) AddMigrationTarget(ctx context.Context, principalID, branchID uuid.UUID, target string) (*Branch, error) {
	args := m.Called(ctx, principalID, branchID, target)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Branch), args.Error(1)
}

func setupRouter(service ServiceInterface, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	group := r.Group("/api/v1")
	if userID != uuid.Nil {
		group.Use(func(c *gin.Context) {
			c.Set("user_id", userID)
		})
	}
	NewHandler(service, 30*time.Second, zap.NewNop()).RegisterProtectedRoutes(group)
	return r
}

func importBody(t *testing.T, ref RepoRef) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(ImportRequest{Repository: ref})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestImportRepoEndpoint(t *testing.T) {
	userID := uuid.New()
	ref := RepoRef{ID: 42, Name: "web-editor", FullName: "alice/web-editor"}

	t.Run("created", func(t *testing.T) {
		service := new(mockService)
		imported := &Repository{ID: uuid.New(), Name: "web-editor"}
		service.On("Import", mock.Anything, userID, mock.MatchedBy(func(r *RepoRef) bool {
			return r.ID == 42 && r.Name == "web-editor"
		})).Return(imported, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		var got Repository
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, imported.ID, got.ID)
	})

	t.Run("conflict carries existing repository", func(t *testing.T) {
		service := new(mockService)
		existing := &Repository{ID: uuid.New(), Name: "web-editor"}
		service.On("Import", mock.Anything, userID, mock.Anything).
			Return(nil, &AlreadyImportedError{Existing: existing})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		var resp struct {
			Details struct {
				Repository Repository `json:"repository"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, existing.ID, resp.Details.Repository.ID)
	})

	t.Run("forbidden carries canonical owner", func(t *testing.T) {
		service := new(mockService)
		service.On("Import", mock.Anything, userID, mock.Anything).
			Return(nil, &OwnershipError{Owner: "bob"})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		var resp struct {
			Details struct {
				Owner string `json:"owner"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "bob", resp.Details.Owner)
	})

	t.Run("invalid ref", func(t *testing.T) {
		service := new(mockService)
		service.On("Import", mock.Anything, userID, mock.Anything).
			Return(nil, ErrInvalidRepoRef)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import",
			importBody(t, RepoRef{Name: "no-id"}))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		service := new(mockService)
		service.On("Import", mock.Anything, userID, mock.Anything).
			Return(nil, ErrRateLimited)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		service := new(mockService)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, uuid.Nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		service.AssertNotCalled(t, "Import", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("github unavailable", func(t *testing.T) {
		service := new(mockService)
		service.On("Import", mock.Anything, userID, mock.Anything).
			Return(nil, github.ErrUnavailable)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/repos/import", importBody(t, ref))
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
	})
}

func TestGetRepoEndpoint(t *testing.T) {
	userID := uuid.New()

	t.Run("found", func(t *testing.T) {
		service := new(mockService)
		repository := &Repository{ID: uuid.New(), Name: "web-editor"}
		service.On("Get", mock.Anything, userID, repository.ID).Return(repository, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/"+repository.ID.String(), nil)
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		service := new(mockService)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/not-a-uuid", nil)
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("not found", func(t *testing.T) {
		service := new(mockService)
		repoID := uuid.New()
		service.On("Get", mock.Anything, userID, repoID).Return(nil, ErrRepoNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/"+repoID.String(), nil)
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("access denied", func(t *testing.T) {
		service := new(mockService)
		repoID := uuid.New()
		service.On("Get", mock.Anything, userID, repoID).Return(nil, ErrAccessDenied)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/repos/"+repoID.String(), nil)
		setupRouter(service, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestDeleteRepoEndpoint(t *testing.T) {
	userID := uuid.New()
	repoID := uuid.New()

	service := new(mockService)
	service.On("Delete", mock.Anything, userID, repoID).Return(nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/repos/"+repoID.String(), nil)
	setupRouter(service, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAddMigrationTargetEndpoint(t *testing.T) {
	userID := uuid.New()
	branchID := uuid.New()

	service := new(mockService)
	branch := &Branch{ID: branchID, Name: "main", MigratesTo: []string{"react"}}
	service.On("AddMigrationTarget", mock.Anything, userID, branchID, "react").Return(branch, nil)

	body := bytes.NewBufferString(`{"target":"react"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/branches/"+branchID.String()+"/migration-targets", body)
	setupRouter(service, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var got Branch
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"react"}, []string(got.MigratesTo))
}
