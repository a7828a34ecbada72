package deployment

import (
	"time"

	"github.com/google/uuid"

	"github.com/devsync-tools/devsync/internal/domain/version"
)

// Record is one line of deployment history.
type Record struct {
	ID         string    `json:"id"`
	Version    string    `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
	Branch     string    `json:"branch"`
	CommitHash string    `json:"commit_hash"`
	User       string    `json:"user"`
	Success    bool      `json:"success"`
	Notes      string    `json:"notes,omitempty"`
}

// NewRecord creates a record with a fresh ID and the current time.
func NewRecord(v version.Version, branch, commitHash, user string, success bool, notes string) Record {
	return Record{
		ID:         uuid.NewString(),
		Version:    v.String(),
		Timestamp:  time.Now().UTC(),
		Branch:     branch,
		CommitHash: commitHash,
		User:       user,
		Success:    success,
		Notes:      notes,
	}
}

// Options configures a deployment run.
type Options struct {
	// BumpKind selects how the version advances.
	BumpKind version.BumpKind
	// CustomSuffix is the suffix value for custom bumps.
	CustomSuffix string
	// ExplicitVersion overrides bumping entirely when non-nil.
	ExplicitVersion *version.Version
	// ChangelogBody is the markdown body for the changelog entry and
	// release notes.
	ChangelogBody string
	// SkipMerge leaves the working branch unmerged.
	SkipMerge bool
	// SkipRelease skips publishing a hosted release.
	SkipRelease bool
	// DraftRelease publishes the release as a draft.
	DraftRelease bool
	// Prerelease forces the pre-release marker on the hosted release.
	// Pre-release versions are marked regardless.
	Prerelease bool
	// ReleaseTitle overrides the default release title.
	ReleaseTitle string
	// WaitForCI blocks on the pipeline after pushing before merging.
	WaitForCI bool
	// DryRun logs each step without performing side effects.
	DryRun bool
	// Notes is free-form text stored on the history record.
	Notes string
}
