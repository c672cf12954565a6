package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for user data access.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByGithubUsername(ctx context.Context, username string) (*User, error)
	UpsertFromGithub(ctx context.Context, identity *GithubIdentity, accessToken string) (*User, error)
	Update(ctx context.Context, u *User) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new user repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *repository) GetByGithubUsername(ctx context.Context, username string) (*User, error) {
	var u User
	err := r.db.WithContext(ctx).First(&u, "github_username = ?", username).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpsertFromGithub creates the user on first login and refreshes the stored
// identity fields on every subsequent login, keyed by the GitHub account id.
func (r *repository) UpsertFromGithub(ctx context.Context, identity *GithubIdentity, accessToken string) (*User, error) {
	email := identity.FallbackEmail()

	u := &User{
		ID:             uuid.New(),
		Email:          email,
		GithubID:       &identity.ID,
		GithubUsername: &identity.Login,
		GithubToken:    &accessToken,
	}
	if identity.Name != "" {
		u.Name = &identity.Name
	}
	if identity.AvatarURL != "" {
		u.AvatarURL = &identity.AvatarURL
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "github_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "email", "github_username", "avatar_url", "github_token", "updated_at",
			}),
		}).
		Create(u).Error
	if err != nil {
		// The conflict target is github_id, so a duplicate key here means a
		// different GitHub account already registered this email.
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	// Re-read: on conflict the insert id is discarded and the existing row wins.
	return r.GetByGithubUsername(ctx, identity.Login)
}

func (r *repository) Update(ctx context.Context, u *User) error {
	return r.db.WithContext(ctx).Save(u).Error
}

// isUniqueViolation reports whether err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
