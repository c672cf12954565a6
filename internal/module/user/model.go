package user

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user. Accounts are created and refreshed
// from the GitHub identity on each completed OAuth login.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      *string   `json:"name,omitempty"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	AvatarURL *string   `json:"avatar_url,omitempty" gorm:"column:avatar_url"`

	// GitHub identity
	GithubID       *string `json:"github_id,omitempty" gorm:"column:github_id;uniqueIndex"`
	GithubUsername *string `json:"github_username,omitempty" gorm:"column:github_username;uniqueIndex"`

	// Delegated GitHub access token, refreshed on each login. Never serialized.
	GithubToken *string `json:"-" gorm:"column:github_token"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (User) TableName() string {
	return "users"
}

// GithubLogin returns the stored GitHub username, or empty if the user
// has no linked GitHub identity.
func (u *User) GithubLogin() string {
	if u.GithubUsername == nil {
		return ""
	}
	return *u.GithubUsername
}

// GithubIdentity holds the subset of the GitHub account used to upsert a user.
type GithubIdentity struct {
	ID        string
	Login     string
	Name      string
	Email     string
	AvatarURL string
}

// FallbackEmail returns the email to store when GitHub hides the address.
func (g *GithubIdentity) FallbackEmail() string {
	if g.Email != "" {
		return g.Email
	}
	return g.Login + "@github.local"
}
