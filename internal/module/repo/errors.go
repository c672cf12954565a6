package repo

import (
	"errors"
	"fmt"
)

// Module errors.
var (
	// Import validation
	ErrInvalidRepoRef  = errors.New("repository reference must carry an id and a name")
	ErrAlreadyImported = errors.New("repository already imported")
	ErrNotOwner        = errors.New("only the repository owner can import")
	ErrNoGithubToken   = errors.New("no github access token on record")
	ErrRateLimited     = errors.New("import rate limit exceeded")

	// Store
	ErrRepoNotFound   = errors.New("repository not found")
	ErrBranchNotFound = errors.New("branch not found")
	ErrRepoExists     = errors.New("repository with this github id already exists")
	ErrBranchExists   = errors.New("branch already exists for this repository")
	ErrLanguageExists = errors.New("language already recorded for this branch")

	// Access
	ErrAccessDenied = errors.New("access denied")
)

// AlreadyImportedError reports a duplicate import attempt and carries the
// existing record so callers can render it.
type AlreadyImportedError struct {
	Existing *Repository
}

func (e *AlreadyImportedError) Error() string {
	return ErrAlreadyImported.Error()
}

func (e *AlreadyImportedError) Unwrap() error {
	return ErrAlreadyImported
}

// OwnershipError reports a failed ownership check and carries the canonical
// owner login for user-facing messaging. Owner is empty when the canonical
// repository could not be fetched at all.
type OwnershipError struct {
	Owner string
}

func (e *OwnershipError) Error() string {
	if e.Owner == "" {
		return "unable to verify repository ownership"
	}
	return fmt.Sprintf("repository is owned by %s", e.Owner)
}

func (e *OwnershipError) Unwrap() error {
	return ErrNotOwner
}
