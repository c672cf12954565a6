package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Store defines the persistence gateway for imported repository metadata.
// Uniqueness invariants (github id per repository, name per repository for
// branches, name per branch for languages) are enforced at the storage
// layer; duplicate inserts fail instead of overwriting.
type Store interface {
	CreateRepository(ctx context.Context, r *Repository) error
	FindByGithubID(ctx context.Context, githubID int64) (*Repository, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Repository, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*Repository, error)
	DeleteRepository(ctx context.Context, id uuid.UUID) error

	CreateBranch(ctx context.Context, b *Branch) error
	FindBranchByName(ctx context.Context, repositoryID uuid.UUID, name string) (*Branch, error)
	FindBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error)
	AppendMigrationTarget(ctx context.Context, branchID uuid.UUID, target string) (*Branch, error)

	AddLanguageToBranch(ctx context.Context, branchID uuid.UUID, name string, version *string, category Category) (*Language, error)
}

type store struct {
	db *gorm.DB
}

// NewStore creates a new metadata store backed by the given database.
func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) CreateRepository(ctx context.Context, r *Repository) error {
	if err := s.db.WithContext(ctx).Create(r).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrRepoExists
		}
		return fmt.Errorf("create repository: %w", err)
	}
	return nil
}

// repoGraph preloads the full relation graph a repository is returned with.
func repoGraph(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Owner").
		Preload("Branches.Languages").
		Preload("RepoUsers.User")
}

func (s *store) FindByGithubID(ctx context.Context, githubID int64) (*Repository, error) {
	var r Repository
	err := repoGraph(s.db.WithContext(ctx)).First(&r, "github_id = ?", githubID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepoNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *store) FindByID(ctx context.Context, id uuid.UUID) (*Repository, error) {
	var r Repository
	err := repoGraph(s.db.WithContext(ctx)).First(&r, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRepoNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ListForUser returns repositories the user owns or is linked to through a
// role assignment.
func (s *store) ListForUser(ctx context.Context, userID uuid.UUID) ([]*Repository, error) {
	var repos []*Repository
	err := repoGraph(s.db.WithContext(ctx)).
		Where("owner_id = ? OR id IN (?)",
			userID,
			s.db.Model(&RepoUser{}).Select("repository_id").Where("user_id = ?", userID),
		).
		Order("created_at DESC").
		Find(&repos).Error
	if err != nil {
		return nil, fmt.Errorf("list repositories: %w", err)
	}
	return repos, nil
}

// DeleteRepository removes a repository along with its branches and role
// assignments. Attached languages are detached, not deleted.
func (s *store) DeleteRepository(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var r Repository
		if err := tx.First(&r, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRepoNotFound
			}
			return err
		}

		branchIDs := tx.Model(&Branch{}).Select("id").Where("repository_id = ?", id)
		if err := tx.Model(&Language{}).
			Where("branch_id IN (?)", branchIDs).
			Update("branch_id", nil).Error; err != nil {
			return fmt.Errorf("detach languages: %w", err)
		}

		if err := tx.Where("repository_id = ?", id).Delete(&Branch{}).Error; err != nil {
			return fmt.Errorf("delete branches: %w", err)
		}
		if err := tx.Where("repository_id = ?", id).Delete(&RepoUser{}).Error; err != nil {
			return fmt.Errorf("delete repo users: %w", err)
		}
		if err := tx.Delete(&r).Error; err != nil {
			return fmt.Errorf("delete repository: %w", err)
		}
		return nil
	})
}

func (s *store) CreateBranch(ctx context.Context, b *Branch) error {
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrBranchExists
		}
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

func (s *store) FindBranchByName(ctx context.Context, repositoryID uuid.UUID, name string) (*Branch, error) {
	var b Branch
	err := s.db.WithContext(ctx).
		Where("repository_id = ? AND name = ?", repositoryID, name).
		First(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (s *store) FindBranchByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	var b Branch
	err := s.db.WithContext(ctx).Preload("Languages").First(&b, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	return &b, nil
}

// AppendMigrationTarget appends one target to the branch's ordered
// migration list. Existing entries are never removed or reordered.
func (s *store) AppendMigrationTarget(ctx context.Context, branchID uuid.UUID, target string) (*Branch, error) {
	var b Branch
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&b, "id = ?", branchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBranchNotFound
			}
			return err
		}
		b.MigratesTo = append(b.MigratesTo, target)
		return tx.Model(&b).Update("migrates_to", b.MigratesTo).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *store) AddLanguageToBranch(ctx context.Context, branchID uuid.UUID, name string, version *string, category Category) (*Language, error) {
	lang := &Language{
		ID:       uuid.New(),
		Name:     name,
		Version:  version,
		Category: category,
		BranchID: &branchID,
	}
	if err := s.db.WithContext(ctx).Create(lang).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrLanguageExists
		}
		return nil, fmt.Errorf("create language: %w", err)
	}
	return lang, nil
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
