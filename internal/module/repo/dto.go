package repo

// RepoRef is a caller-supplied reference to a GitHub repository, taken from
// a prior listing call.
type RepoRef struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	FullName      string  `json:"fullName"`
	Description   *string `json:"description,omitempty"`
	HTMLURL       string  `json:"htmlUrl"`
	CloneURL      string  `json:"cloneUrl"`
	Private       bool    `json:"private"`
	DefaultBranch string  `json:"defaultBranch"`
}

// ImportRequest is the request body for importing a repository.
type ImportRequest struct {
	Repository RepoRef `json:"repository" binding:"required"`
}

// AddMigrationTargetRequest is the request body for appending a migration
// target to a branch.
type AddMigrationTargetRequest struct {
	Target string `json:"target" binding:"required"`
}
