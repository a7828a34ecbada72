// Package sourcecontrol provides domain types for source control
// operations used by the deployment pipeline.
package sourcecontrol

import (
	"context"
	"regexp"
	"strings"
)

// CommitHash is a git commit identifier.
type CommitHash string

// Short returns the abbreviated hash.
func (h CommitHash) Short() string {
	if len(h) > 7 {
		return string(h[:7])
	}
	return string(h)
}

// String returns the full hash.
func (h CommitHash) String() string {
	return string(h)
}

// WorkingTreeStatus describes the local working tree.
type WorkingTreeStatus struct {
	Branch    string
	IsClean   bool
	Modified  []string
	Untracked []string
}

// CommitRequest describes a commit plus push of the current branch.
type CommitRequest struct {
	// Message is the full commit message.
	Message string
	// Paths restricts the commit to specific files; empty stages all
	// changes.
	Paths []string
}

// Client is the port for repository operations the deployment pipeline
// needs. Implemented in the infrastructure layer.
type Client interface {
	// ValidateRepo checks that the working directory is a usable git
	// repository with the expected remote.
	ValidateRepo(ctx context.Context) error

	// CurrentBranch returns the name of the checked-out branch.
	CurrentBranch(ctx context.Context) (string, error)

	// Status reports the working tree state.
	Status(ctx context.Context) (*WorkingTreeStatus, error)

	// CreateAndCheckoutBranch creates branch from the current HEAD and
	// checks it out. Checking out an existing branch of the same name
	// is not an error.
	CreateAndCheckoutBranch(ctx context.Context, branch string) error

	// CommitAndPush stages, commits, and pushes the current branch to
	// the default remote.
	CommitAndPush(ctx context.Context, req CommitRequest) (CommitHash, error)

	// MergeToMain checks out the main branch, merges the given branch
	// into it, and pushes the result.
	MergeToMain(ctx context.Context, branch string) error

	// CreateTag creates an annotated tag at HEAD and pushes it.
	CreateTag(ctx context.Context, name, message string) error

	// HeadCommitHash returns the hash of the current HEAD.
	HeadCommitHash(ctx context.Context) (CommitHash, error)

	// Username returns the configured committer name, falling back to
	// the OS user when git has none.
	Username(ctx context.Context) (string, error)

	// RemoteURL returns the URL of the default remote.
	RemoteURL(ctx context.Context) (string, error)
}

var branchCharRegex = regexp.MustCompile(`[^a-z0-9._/-]+`)

// DevelopBranch derives the per-user working branch name from a
// committer name: lowercased, spaces collapsed to dashes, anything git
// would reject stripped.
func DevelopBranch(username string) string {
	name := strings.ToLower(strings.TrimSpace(username))
	name = strings.Join(strings.Fields(name), "-")
	name = branchCharRegex.ReplaceAllString(name, "")
	name = strings.Trim(name, "-./")
	if name == "" {
		name = "unknown"
	}
	return "develop-" + name
}
