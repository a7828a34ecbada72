// Package hosting provides domain types for the code-hosting platform
// that publishes releases and runs CI pipelines.
package hosting

import (
	"context"
	"time"
)

// ReleaseDescriptor describes a release to publish.
type ReleaseDescriptor struct {
	// TagName is the git tag the release points at.
	TagName string
	// Name is the release title.
	Name string
	// Body is the release notes in markdown.
	Body string
	// Draft publishes the release as a draft.
	Draft bool
	// Prerelease marks the release as a pre-release.
	Prerelease bool
}

// Release is a published release as reported by the platform.
type Release struct {
	ID         int64
	TagName    string
	Name       string
	URL        string
	Draft      bool
	Prerelease bool
	CreatedAt  time.Time
}

// Asset is a file attached to a release.
type Asset struct {
	Name string
	// Path is the local file to upload.
	Path string
	// ContentType overrides detection when set.
	ContentType string
}

// PipelineState is the aggregate CI state for a commit.
type PipelineState string

const (
	// PipelinePending means checks are still running or none reported.
	PipelinePending PipelineState = "pending"
	// PipelineSuccess means all checks passed.
	PipelineSuccess PipelineState = "success"
	// PipelineFailure means at least one check failed.
	PipelineFailure PipelineState = "failure"
)

// Client is the port for the code-hosting platform. Implemented in the
// infrastructure layer.
type Client interface {
	// CreateRelease publishes a release and returns its web URL.
	CreateRelease(ctx context.Context, desc ReleaseDescriptor) (string, error)

	// ListReleases returns the most recent releases, newest first.
	ListReleases(ctx context.Context, limit int) ([]Release, error)

	// UploadAsset attaches a file to the release with the given ID.
	UploadAsset(ctx context.Context, releaseID int64, asset Asset) error

	// PipelineStatus reports the combined CI state for a commit or ref.
	PipelineStatus(ctx context.Context, ref string) (PipelineState, error)
}

// PipelineWaiter polls CI status until it settles or the deadline
// passes.
type PipelineWaiter interface {
	// WaitForPipeline blocks until the pipeline for ref succeeds, fails,
	// or times out. A timeout returns ErrCITimeout.
	WaitForPipeline(ctx context.Context, ref string, interval, timeout time.Duration) (PipelineState, error)
}
