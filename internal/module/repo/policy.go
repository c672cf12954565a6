package repo

import (
	"context"

	"github.com/agamify/server/internal/module/github"
	"github.com/agamify/server/internal/module/user"
)

// ImportPolicy decides whether a principal may import a repository. The
// free-tier rule restricts imports to the verified owner; the interface
// keeps that rule replaceable without touching the orchestration.
type ImportPolicy interface {
	Authorize(ctx context.Context, principal *user.User, fullName, token string) error
}

// OwnerOnlyPolicy fetches the canonical repository from GitHub with the
// principal's delegated token and admits the import only when the canonical
// owner login equals the principal's stored GitHub username. Collaborators
// are rejected regardless of their access level.
type OwnerOnlyPolicy struct {
	github github.Client
}

// NewOwnerOnlyPolicy creates the owner-only import policy.
func NewOwnerOnlyPolicy(client github.Client) *OwnerOnlyPolicy {
	return &OwnerOnlyPolicy{github: client}
}

// Authorize implements ImportPolicy. Any failure to fetch the canonical
// repository, including auth rejection, denies the import: ownership that
// cannot be verified does not exist.
func (p *OwnerOnlyPolicy) Authorize(ctx context.Context, principal *user.User, fullName, token string) error {
	canonical, err := p.github.GetRepository(ctx, fullName, token)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &OwnershipError{}
	}

	login := principal.GithubLogin()
	if login == "" || canonical.Owner.Login != login {
		return &OwnershipError{Owner: canonical.Owner.Login}
	}
	return nil
}
