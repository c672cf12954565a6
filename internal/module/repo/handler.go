package repo

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/agamify/server/internal/module/github"
	"github.com/agamify/server/internal/module/user"
	"github.com/agamify/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for repository imports.
type Handler struct {
	service       ServiceInterface
	importTimeout time.Duration
	logger        *zap.Logger
}

// NewHandler creates a new repository handler.
func NewHandler(service ServiceInterface, importTimeout time.Duration, logger *zap.Logger) *Handler {
	return &Handler{
		service:       service,
		importTimeout: importTimeout,
		logger:        logger,
	}
}

// RegisterProtectedRoutes registers repository routes that require
// authentication.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	repos := r.Group("/repos")
	{
		repos.POST("/import", h.ImportRepo)
		repos.GET("", h.ListRepos)
		repos.GET("/:id", h.GetRepo)
		repos.DELETE("/:id", h.DeleteRepo)
	}

	r.POST("/branches/:id/migration-targets", h.AddMigrationTarget)
	r.GET("/github/repos", h.ListGithubRepos)
}

// ImportRepo imports a GitHub repository for the authenticated user.
func (h *Handler) ImportRepo(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	if h.importTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.importTimeout)
		defer cancel()
	}

	repository, err := h.service.Import(ctx, userID, &req.Repository)
	if err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.JSON(http.StatusCreated, repository)
}

// ListRepos lists the imported repositories visible to the user.
func (h *Handler) ListRepos(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	repos, err := h.service.ListImported(c.Request.Context(), userID)
	if err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"repositories": repos})
}

// GetRepo returns one imported repository with branches and languages.
func (h *Handler) GetRepo(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	repoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid repository id")
		return
	}

	repository, err := h.service.Get(c.Request.Context(), userID, repoID)
	if err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, repository)
}

// DeleteRepo removes an imported repository and its branches.
func (h *Handler) DeleteRepo(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	repoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid repository id")
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, repoID); err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMigrationTarget appends a migration target to a branch.
func (h *Handler) AddMigrationTarget(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	branchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid branch id")
		return
	}

	var req AddMigrationTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	branch, err := h.service.AddMigrationTarget(c.Request.Context(), userID, branchID, req.Target)
	if err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, branch)
}

// ListGithubRepos lists the user's repositories on GitHub.
func (h *Handler) ListGithubRepos(c *gin.Context) {
	userID := getUserID(c)
	if userID == uuid.Nil {
		response.Unauthorized(c, "")
		return
	}

	repos, err := h.service.ListGithubRepositories(c.Request.Context(), userID)
	if err != nil {
		h.handleRepoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"repositories": repos})
}

func (h *Handler) handleRepoError(c *gin.Context, err error) {
	var dup *AlreadyImportedError
	var owned *OwnershipError

	switch {
	case errors.As(err, &dup):
		response.ErrorWithDetails(c, http.StatusConflict, "repository already imported",
			gin.H{"repository": dup.Existing})
	case errors.As(err, &owned):
		details := gin.H{}
		if owned.Owner != "" {
			details["owner"] = owned.Owner
		}
		response.ErrorWithDetails(c, http.StatusForbidden, "repository is not owned by you", details)
	case errors.Is(err, ErrInvalidRepoRef):
		response.BadRequest(c, "repository id and name are required")
	case errors.Is(err, ErrAlreadyImported):
		response.Conflict(c, "repository already imported")
	case errors.Is(err, ErrNotOwner):
		response.Forbidden(c, "repository is not owned by you")
	case errors.Is(err, ErrNoGithubToken):
		response.Unauthorized(c, "no github token on account, sign in with github again")
	case errors.Is(err, ErrRateLimited):
		response.Error(c, http.StatusTooManyRequests, "import rate limit exceeded")
	case errors.Is(err, ErrRepoNotFound), errors.Is(err, ErrBranchNotFound):
		response.NotFound(c, "")
	case errors.Is(err, ErrAccessDenied):
		response.Forbidden(c, "")
	case errors.Is(err, user.ErrUserNotFound):
		response.Unauthorized(c, "")
	case errors.Is(err, github.ErrAuthRejected):
		response.Unauthorized(c, "github rejected the stored token")
	case errors.Is(err, github.ErrUnavailable):
		response.Error(c, http.StatusBadGateway, "github is unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(c, http.StatusGatewayTimeout, "import timed out")
	default:
		h.logger.Error("repository request failed", zap.Error(err))
		response.InternalError(c, "")
	}
}

func getUserID(c *gin.Context) uuid.UUID {
	val, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil
	}
	id, ok := val.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return id
}
