package repo

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/agamify/server/internal/module/github"
	"github.com/agamify/server/internal/module/user"
	"github.com/agamify/server/internal/shared/metrics"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Caps on remote fan-out, keeping external API and write load bounded.
	maxBranchImports   = 10
	maxLanguageImports = 5

	// Concurrent writes per enrichment phase.
	enrichParallelism = 4
)

// ServiceInterface defines the repository import operations.
type ServiceInterface interface {
	Import(ctx context.Context, principalID uuid.UUID, ref *RepoRef) (*Repository, error)
	ListImported(ctx context.Context, principalID uuid.UUID) ([]*Repository, error)
	Get(ctx context.Context, principalID, repoID uuid.UUID) (*Repository, error)
	Delete(ctx context.Context, principalID, repoID uuid.UUID) error
	ListGithubRepositories(ctx context.Context, principalID uuid.UUID) ([]github.Repo, error)
	AddMigrationTarget(ctx context.Context, principalID, branchID uuid.UUID, target string) (*Branch, error)
}

// Service orchestrates repository imports: it validates the request,
// verifies ownership, creates the repository record, and then enriches it
// with branches and languages on a best-effort basis.
type Service struct {
	store   Store
	users   user.Repository
	github  github.Client
	policy  ImportPolicy
	limiter *ImportLimiter
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewService creates a new repository service. limiter and m may be nil.
func NewService(
	store Store,
	users user.Repository,
	githubClient github.Client,
	policy ImportPolicy,
	limiter *ImportLimiter,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:   store,
		users:   users,
		github:  githubClient,
		policy:  policy,
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// Import imports one GitHub repository for the given principal.
//
// The repository record itself is created synchronously; branch and
// language enrichment then runs concurrently and best-effort. An
// enrichment failure is logged and never fails the import: the operation
// succeeds once the repository record exists.
func (s *Service) Import(ctx context.Context, principalID uuid.UUID, ref *RepoRef) (*Repository, error) {
	start := time.Now()
	repository, err := s.doImport(ctx, principalID, ref)
	if s.metrics != nil {
		s.metrics.RecordImport(importOutcome(err), time.Since(start))
	}
	return repository, err
}

func (s *Service) doImport(ctx context.Context, principalID uuid.UUID, ref *RepoRef) (*Repository, error) {
	if ref == nil || ref.ID == 0 || ref.Name == "" {
		return nil, ErrInvalidRepoRef
	}

	// Reject duplicates up front; the unique github_id constraint backs
	// this check against concurrent imports of the same repository.
	if existing, err := s.store.FindByGithubID(ctx, ref.ID); err == nil {
		return nil, &AlreadyImportedError{Existing: existing}
	} else if !errors.Is(err, ErrRepoNotFound) {
		return nil, err
	}

	principal, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if principal.GithubToken == nil || *principal.GithubToken == "" {
		return nil, ErrNoGithubToken
	}
	token := *principal.GithubToken

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, principal.ID)
		if err != nil {
			s.logger.Warn("import rate limit check failed, allowing",
				zap.Error(err), zap.String("user_id", principal.ID.String()))
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	if err := s.policy.Authorize(ctx, principal, ref.FullName, token); err != nil {
		return nil, err
	}

	repository := &Repository{
		ID:          uuid.New(),
		Name:        ref.Name,
		Description: ref.Description,
		GithubID:    &ref.ID,
		HTMLURL:     ref.HTMLURL,
		CloneURL:    ref.CloneURL,
		IsPrivate:   ref.Private,
		OwnerID:     principal.ID,
	}
	if err := s.store.CreateRepository(ctx, repository); err != nil {
		if errors.Is(err, ErrRepoExists) {
			// Lost a race with a concurrent import of the same repository.
			if existing, findErr := s.store.FindByGithubID(ctx, ref.ID); findErr == nil {
				return nil, &AlreadyImportedError{Existing: existing}
			}
			return nil, ErrAlreadyImported
		}
		return nil, err
	}

	// Enrichment: the two remote fetches run concurrently, but language
	// attachment needs the branch rows, so it waits for the branch phase to
	// settle before resolving the default branch. Failures are collected and
	// logged here, never surfaced to the caller.
	branchesSettled := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		defer close(branchesSettled)
		if err := s.importBranches(ctx, repository.ID, ref.FullName, token); err != nil {
			s.recordEnrichmentFailure("branches", repository.ID, err)
		}
		return nil
	})
	g.Go(func() error {
		byteCounts, err := s.github.GetLanguages(ctx, ref.FullName, token)
		if err != nil {
			s.recordEnrichmentFailure("languages", repository.ID, err)
			return nil
		}
		<-branchesSettled
		if err := s.attachLanguages(ctx, repository.ID, ref.DefaultBranch, byteCounts); err != nil {
			s.recordEnrichmentFailure("languages", repository.ID, err)
		}
		return nil
	})
	_ = g.Wait()

	return s.store.FindByID(ctx, repository.ID)
}

// importBranches fetches the remote branch list and persists up to
// maxBranchImports branch records. Individual record failures are logged
// and do not stop the remaining creations.
func (s *Service) importBranches(ctx context.Context, repositoryID uuid.UUID, fullName, token string) error {
	branches, err := s.github.ListBranches(ctx, fullName, token)
	if err != nil {
		return err
	}
	remoteTotal := len(branches)
	if len(branches) > maxBranchImports {
		branches = branches[:maxBranchImports]
	}

	var created atomic.Int64
	var g errgroup.Group
	g.SetLimit(enrichParallelism)
	for _, remote := range branches {
		g.Go(func() error {
			branch := &Branch{
				ID:           uuid.New(),
				Name:         remote.Name,
				RepositoryID: repositoryID,
				IsProtected:  remote.Protected,
			}
			if plumbing.IsHash(remote.Commit.SHA) {
				sha := remote.Commit.SHA
				branch.LastCommit = &sha
			}
			if err := s.store.CreateBranch(ctx, branch); err != nil {
				s.logger.Warn("branch import failed",
					zap.Error(err),
					zap.String("repository_id", repositoryID.String()),
					zap.String("branch", remote.Name))
				return nil
			}
			created.Add(1)
			if s.metrics != nil {
				s.metrics.BranchesImported.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Info("branches imported",
		zap.String("repository_id", repositoryID.String()),
		zap.Int64("created", created.Load()),
		zap.Int("remote_total", remoteTotal))
	return nil
}

// attachLanguages classifies the most prominent entries of a fetched
// language byte map and attaches them to the repository's default branch.
// Callers must not invoke it before the branch phase has settled. When no
// branch matches the declared default, main or master, nothing is attached.
func (s *Service) attachLanguages(ctx context.Context, repositoryID uuid.UUID, declaredDefault string, byteCounts map[string]int64) error {
	names := topLanguages(byteCounts, maxLanguageImports)
	if len(names) == 0 {
		return nil
	}

	branch := s.resolveDefaultBranch(ctx, repositoryID, declaredDefault)
	if branch == nil {
		s.logger.Info("no default branch to attach languages",
			zap.String("repository_id", repositoryID.String()),
			zap.String("declared_default", declaredDefault))
		return nil
	}

	var g errgroup.Group
	g.SetLimit(enrichParallelism)
	for _, name := range names {
		g.Go(func() error {
			category := CategoryForLanguage(name)
			if _, err := s.store.AddLanguageToBranch(ctx, branch.ID, name, nil, category); err != nil {
				s.logger.Warn("language import failed",
					zap.Error(err),
					zap.String("repository_id", repositoryID.String()),
					zap.String("language", name))
				return nil
			}
			if s.metrics != nil {
				s.metrics.LanguagesImported.Inc()
			}
			return nil
		})
	}
	_ = g.Wait()
	return nil
}

// resolveDefaultBranch returns the attachment branch for detected
// languages: the declared default, falling back to main, then master.
func (s *Service) resolveDefaultBranch(ctx context.Context, repositoryID uuid.UUID, declared string) *Branch {
	candidates := []string{declared, "main", "master"}
	seen := make(map[string]bool, len(candidates))
	for _, name := range candidates {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if branch, err := s.store.FindBranchByName(ctx, repositoryID, name); err == nil {
			return branch
		}
	}
	return nil
}

// topLanguages returns up to limit language names ordered by descending
// byte count, ties broken by name. The provider returns an unordered map;
// ordering by prominence keeps the capped selection deterministic.
func topLanguages(byteCounts map[string]int64, limit int) []string {
	names := make([]string, 0, len(byteCounts))
	for name := range byteCounts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if byteCounts[names[i]] != byteCounts[names[j]] {
			return byteCounts[names[i]] > byteCounts[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}

func (s *Service) recordEnrichmentFailure(phase string, repositoryID uuid.UUID, err error) {
	s.logger.Warn("enrichment failed",
		zap.String("phase", phase),
		zap.String("repository_id", repositoryID.String()),
		zap.Error(err))
	if s.metrics != nil {
		s.metrics.EnrichmentFailures.WithLabelValues(phase).Inc()
	}
}

func importOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRepoRef):
		return "invalid"
	case errors.Is(err, ErrAlreadyImported):
		return "duplicate"
	case errors.Is(err, ErrNotOwner):
		return "denied"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, user.ErrUserNotFound):
		return "unknown_principal"
	default:
		return "error"
	}
}

// ListImported returns the repositories the principal owns or is linked to.
func (s *Service) ListImported(ctx context.Context, principalID uuid.UUID) ([]*Repository, error) {
	return s.store.ListForUser(ctx, principalID)
}

// Get returns one repository with its full relation graph. The principal
// must own the repository or hold a role on it.
func (s *Service) Get(ctx context.Context, principalID, repoID uuid.UUID) (*Repository, error) {
	repository, err := s.store.FindByID(ctx, repoID)
	if err != nil {
		return nil, err
	}
	if !canAccess(repository, principalID) {
		return nil, ErrAccessDenied
	}
	return repository, nil
}

// Delete removes a repository. Only the owner may delete; branches and
// role assignments go with it.
func (s *Service) Delete(ctx context.Context, principalID, repoID uuid.UUID) error {
	repository, err := s.store.FindByID(ctx, repoID)
	if err != nil {
		return err
	}
	if repository.OwnerID != principalID {
		return ErrAccessDenied
	}
	return s.store.DeleteRepository(ctx, repoID)
}

// ListGithubRepositories lists the principal's repositories on GitHub,
// using the delegated token stored at login.
func (s *Service) ListGithubRepositories(ctx context.Context, principalID uuid.UUID) ([]github.Repo, error) {
	principal, err := s.users.GetByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	if principal.GithubToken == nil || *principal.GithubToken == "" {
		return nil, ErrNoGithubToken
	}
	return s.github.ListUserRepositories(ctx, *principal.GithubToken)
}

// AddMigrationTarget appends a migration target to a branch owned by the
// principal.
func (s *Service) AddMigrationTarget(ctx context.Context, principalID, branchID uuid.UUID, target string) (*Branch, error) {
	branch, err := s.store.FindBranchByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	repository, err := s.store.FindByID(ctx, branch.RepositoryID)
	if err != nil {
		return nil, err
	}
	if repository.OwnerID != principalID {
		return nil, ErrAccessDenied
	}
	return s.store.AppendMigrationTarget(ctx, branchID, target)
}

func canAccess(r *Repository, userID uuid.UUID) bool {
	if r.OwnerID == userID {
		return true
	}
	for _, ru := range r.RepoUsers {
		if ru.UserID == userID {
			return true
		}
	}
	return false
}
