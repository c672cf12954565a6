package repo

import (
	"time"

	"github.com/agamify/server/internal/module/user"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Category is the coarse classification of a detected language or framework.
type Category string

const (
	CategoryFrontend  Category = "FRONTEND"
	CategoryBackend   Category = "BACKEND"
	CategoryFullstack Category = "FULLSTACK"
	CategoryMobile    Category = "MOBILE"
	CategoryDesktop   Category = "DESKTOP"
)

// IsValid checks if the category is a known category.
func (c Category) IsValid() bool {
	switch c {
	case CategoryFrontend, CategoryBackend, CategoryFullstack, CategoryMobile, CategoryDesktop:
		return true
	default:
		return false
	}
}

// Role is a per-repository role assignment, decoupled from ownership.
type Role string

const (
	RoleOwner          Role = "OWNER"
	RoleContributor    Role = "CONTRIBUTOR"
	RoleNonContributor Role = "NON_CONTRIBUTOR"
)

// Repository is one imported source-code project. Each GitHub repository may
// be imported at most once; the github_id column carries that invariant.
type Repository struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null"`
	Description *string   `json:"description,omitempty"`
	GithubID    *int64    `json:"github_id,omitempty" gorm:"column:github_id;uniqueIndex"`
	HTMLURL     string    `json:"html_url" gorm:"column:html_url"`
	CloneURL    string    `json:"clone_url" gorm:"column:clone_url"`
	IsPrivate   bool      `json:"is_private" gorm:"column:is_private;default:false"`

	OwnerID uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Owner   *user.User `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Branches  []Branch   `json:"branches,omitempty" gorm:"foreignKey:RepositoryID;constraint:OnDelete:CASCADE"`
	RepoUsers []RepoUser `json:"repo_users,omitempty" gorm:"foreignKey:RepositoryID;constraint:OnDelete:CASCADE"`
}

// TableName returns the database table name.
func (Repository) TableName() string {
	return "repositories"
}

// RepoUser assigns a role to a user on a repository.
type RepoUser struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID       uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_repo_users_user_repo"`
	RepositoryID uuid.UUID  `json:"repository_id" gorm:"type:uuid;not null;uniqueIndex:idx_repo_users_user_repo"`
	Role         Role       `json:"role" gorm:"not null;default:NON_CONTRIBUTOR"`
	User         *user.User `json:"user,omitempty" gorm:"foreignKey:UserID"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName returns the database table name.
func (RepoUser) TableName() string {
	return "repo_users"
}

// Branch is one branch of an imported repository. Branch names are unique
// within their repository. MigratesTo is an ordered, append-only list of
// migration target identifiers.
type Branch struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string         `json:"name" gorm:"not null;uniqueIndex:idx_branches_name_repo"`
	RepositoryID uuid.UUID      `json:"repository_id" gorm:"type:uuid;not null;uniqueIndex:idx_branches_name_repo"`
	LastCommit   *string        `json:"last_commit,omitempty" gorm:"column:last_commit"`
	IsProtected  bool           `json:"is_protected" gorm:"column:is_protected;default:false"`
	MigratesTo   pq.StringArray `json:"migrates_to" gorm:"column:migrates_to;type:text[];default:'{}'"`
	CreatedAt    time.Time      `json:"created_at"`

	// Languages are orphaned rather than deleted when the branch reference
	// is cleared.
	Languages []Language `json:"languages,omitempty" gorm:"foreignKey:BranchID;constraint:OnDelete:SET NULL"`
}

// TableName returns the database table name.
func (Branch) TableName() string {
	return "branches"
}

// Language is one detected language or framework attached to a branch. The
// branch reference is optional; a detached language stays in place. A name
// may appear once per branch.
type Language struct {
	ID       uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name     string     `json:"name" gorm:"not null;uniqueIndex:idx_languages_name_branch"`
	Version  *string    `json:"version,omitempty"`
	Category Category   `json:"category" gorm:"not null;default:FRONTEND"`
	BranchID *uuid.UUID `json:"branch_id,omitempty" gorm:"type:uuid;uniqueIndex:idx_languages_name_branch"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Language) TableName() string {
	return "languages"
}
