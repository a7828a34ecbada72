package deploy

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devsync-tools/devsync/internal/changelog"
	"github.com/devsync-tools/devsync/internal/domain/deployment"
	"github.com/devsync-tools/devsync/internal/domain/hosting"
	"github.com/devsync-tools/devsync/internal/domain/sourcecontrol"
	"github.com/devsync-tools/devsync/internal/domain/version"
	"github.com/devsync-tools/devsync/internal/infrastructure/persistence"
)

// fakeGit implements sourcecontrol.Client for pipeline tests.
type fakeGit struct {
	mu sync.Mutex

	validateErr error
	commitErr   error
	mergeErr    error
	tagErr      error

	// blockCommit makes CommitAndPush wait until released or canceled.
	blockCommit chan struct{}

	branches []string
	commits  []string
	merged   []string
	tags     []string
}

func (f *fakeGit) ValidateRepo(context.Context) error { return f.validateErr }

func (f *fakeGit) CurrentBranch(context.Context) (string, error) { return "develop-alice", nil }

func (f *fakeGit) Status(context.Context) (*sourcecontrol.WorkingTreeStatus, error) {
	return &sourcecontrol.WorkingTreeStatus{IsClean: true, Branch: "develop-alice"}, nil
}

func (f *fakeGit) CreateAndCheckoutBranch(_ context.Context, branch string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.branches = append(f.branches, branch)
	return nil
}

func (f *fakeGit) CommitAndPush(ctx context.Context, req sourcecontrol.CommitRequest) (sourcecontrol.CommitHash, error) {
	if f.blockCommit != nil {
		select {
		case <-f.blockCommit:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.commitErr != nil {
		return "", f.commitErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, req.Message)
	return "abc1234", nil
}

func (f *fakeGit) MergeToMain(_ context.Context, branch string) error {
	if f.mergeErr != nil {
		return f.mergeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merged = append(f.merged, branch)
	return nil
}

func (f *fakeGit) CreateTag(_ context.Context, name, _ string) error {
	if f.tagErr != nil {
		return f.tagErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, name)
	return nil
}

func (f *fakeGit) HeadCommitHash(context.Context) (sourcecontrol.CommitHash, error) {
	return "abc1234", nil
}

func (f *fakeGit) Username(context.Context) (string, error) { return "Alice Smith", nil }

func (f *fakeGit) RemoteURL(context.Context) (string, error) {
	return "https://github.com/acme/widget.git", nil
}

// fakeHost implements hosting.Client and hosting.PipelineWaiter.
type fakeHost struct {
	mu         sync.Mutex
	releaseErr error
	pipeline   hosting.PipelineState
	waitErr    error
	releases   []hosting.ReleaseDescriptor
}

func (f *fakeHost) CreateRelease(_ context.Context, desc hosting.ReleaseDescriptor) (string, error) {
	if f.releaseErr != nil {
		return "", f.releaseErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases = append(f.releases, desc)
	return "https://github.com/acme/widget/releases/tag/" + desc.TagName, nil
}

func (f *fakeHost) ListReleases(context.Context, int) ([]hosting.Release, error) { return nil, nil }

func (f *fakeHost) UploadAsset(context.Context, int64, hosting.Asset) error { return nil }

func (f *fakeHost) PipelineStatus(context.Context, string) (hosting.PipelineState, error) {
	return f.pipeline, nil
}

func (f *fakeHost) WaitForPipeline(context.Context, string, time.Duration, time.Duration) (hosting.PipelineState, error) {
	if f.waitErr != nil {
		return hosting.PipelinePending, f.waitErr
	}
	return f.pipeline, nil
}

// fixture bundles an orchestrator with its collaborators.
type fixture struct {
	orch  *Orchestrator
	git   *fakeGit
	host  *fakeHost
	store *persistence.VersionStore
	cl    *changelog.Store
}

func newFixture(t *testing.T, current string) *fixture {
	t.Helper()

	dir := t.TempDir()
	store := persistence.NewVersionStore(
		filepath.Join(dir, "version.txt"),
		filepath.Join(dir, "deploy_history.json"),
	)
	if current != "" {
		require.NoError(t, store.WriteCurrent(context.Background(), version.MustParse(current)))
	}

	git := &fakeGit{}
	host := &fakeHost{pipeline: hosting.PipelineSuccess}
	cl := changelog.NewStore(filepath.Join(dir, "CHANGELOG.md"))

	orch := New(DefaultConfig(), git, host, host, store, cl, nil)
	return &fixture{orch: orch, git: git, host: host, store: store, cl: cl}
}

// collect drains the event stream.
func collect(t *testing.T, run *Run) []deployment.Event {
	t.Helper()

	var events []deployment.Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e, ok := <-run.Events():
			if !ok {
				return events
			}
			events = append(events, e)
		case <-timeout:
			t.Fatal("timed out waiting for run events")
		}
	}
}

func finished(t *testing.T, events []deployment.Event) deployment.Event {
	t.Helper()
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, deployment.EventFinished, last.Kind, "stream must end with finished event")
	return last
}

func TestDeploySuccess(t *testing.T) {
	f := newFixture(t, "1.0.0")
	ctx := context.Background()

	run, err := f.orch.Start(ctx, deployment.Options{
		BumpKind:      version.BumpPatch,
		ChangelogBody: "- fixed things",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", run.Version().String())

	events := collect(t, run)
	fin := finished(t, events)
	assert.True(t, fin.Success)
	assert.Equal(t, "1.0.1", fin.Version)
	assert.Equal(t, "https://github.com/acme/widget/releases/tag/v1.0.1", fin.ReleaseURL)
	require.NotNil(t, fin.Record)
	assert.Equal(t, "1.0.1", fin.Record.Version)
	assert.True(t, fin.Record.Success)

	// Progress events must walk the pipeline in order.
	var progress []deployment.RunState
	for _, e := range events {
		if e.Kind == deployment.EventProgress {
			progress = append(progress, e.Step)
		}
	}
	assert.Equal(t, []deployment.RunState{
		deployment.StateValidatingRepo,
		deployment.StateBranchReady,
		deployment.StateVersionBumped,
		deployment.StateChangelogUpdated,
		deployment.StateCommitted,
		deployment.StateMerged,
		deployment.StateTagged,
		deployment.StateReleasePublished,
		deployment.StateHistorySaved,
	}, progress)

	// Side effects.
	assert.Equal(t, []string{"develop-alice-smith"}, f.git.branches)
	assert.Equal(t, []string{"chore: bump version to 1.0.1"}, f.git.commits)
	assert.Equal(t, []string{"develop-alice-smith"}, f.git.merged)
	assert.Equal(t, []string{"v1.0.1"}, f.git.tags)
	require.Len(t, f.host.releases, 1)
	assert.Equal(t, "v1.0.1", f.host.releases[0].TagName)
	assert.False(t, f.host.releases[0].Prerelease)

	current, err := f.store.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", current.String())

	history, err := f.store.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Success)
	assert.Equal(t, "1.0.1", history[0].Version)
	assert.Equal(t, "Alice Smith", history[0].User)

	entries, err := f.cl.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "1.0.1", entries[0].Version)
}

func TestDeployPrereleaseMarksRelease(t *testing.T) {
	f := newFixture(t, "1.0.0")

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpAlpha})
	require.NoError(t, err)
	assert.Equal(t, "1.0.1a", run.Version().String())

	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)
	require.Len(t, f.host.releases, 1)
	assert.True(t, f.host.releases[0].Prerelease)
}

func TestDeployValidationSynchronous(t *testing.T) {
	f := newFixture(t, "1.0.0")

	// Stable bump on a stable version fails before any side effect.
	_, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpStable})
	require.ErrorIs(t, err, version.ErrInvalidBumpTransition)
	assert.Empty(t, f.git.branches)

	history, herr := f.store.History(context.Background())
	require.NoError(t, herr)
	assert.Empty(t, history)
}

func TestDeployMissingVersionFileStartsInitial(t *testing.T) {
	f := newFixture(t, "")

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)
	assert.Equal(t, "0.1.1", run.Version().String())

	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)
}

func TestDeploySingleFlight(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.git.blockCommit = make(chan struct{})

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	_, err = f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpMinor})
	assert.ErrorIs(t, err, ErrDeploymentInProgress)

	close(f.git.blockCommit)
	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)

	// The slot is free again after the run finished.
	run2, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)
	finished(t, collect(t, run2))
}

func TestDeployFailureRecordsHistory(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.git.commitErr = errors.New("push rejected by remote")

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	events := collect(t, run)
	fin := finished(t, events)
	assert.False(t, fin.Success)
	assert.Contains(t, fin.Error, "push rejected")
	require.NotNil(t, fin.Record)
	assert.False(t, fin.Record.Success)
	assert.Contains(t, fin.Record.Notes, "push rejected")

	// Steps after the failure never ran.
	assert.Empty(t, f.git.merged)
	assert.Empty(t, f.git.tags)
	assert.Empty(t, f.host.releases)

	history, herr := f.store.History(context.Background())
	require.NoError(t, herr)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Notes, "push rejected")
}

func TestDeployMergeConflictLeavesBranchWork(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.git.mergeErr = &sourcecontrol.MergeConflictError{
		Branch: "develop-alice-smith",
		Target: "main",
	}

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	fin := finished(t, collect(t, run))
	assert.False(t, fin.Success)

	// The commit and push happened; the failure is recorded with the
	// conflict details, and nothing past the merge ran.
	assert.Len(t, f.git.commits, 1)
	assert.Empty(t, f.git.tags)
	assert.Empty(t, f.host.releases)

	history, herr := f.store.History(context.Background())
	require.NoError(t, herr)
	require.Len(t, history, 1)
	assert.False(t, history[0].Success)
	assert.Contains(t, history[0].Notes, "develop-alice-smith")
}

func TestDeployPrereleaseOptionForcesMarker(t *testing.T) {
	f := newFixture(t, "1.0.0")

	run, err := f.orch.Start(context.Background(), deployment.Options{
		BumpKind:   version.BumpPatch,
		Prerelease: true,
	})
	require.NoError(t, err)

	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)
	require.Len(t, f.host.releases, 1)
	assert.True(t, f.host.releases[0].Prerelease)
}

func TestDeployCancellation(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.git.blockCommit = make(chan struct{})

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	run.Cancel()

	fin := finished(t, collect(t, run))
	assert.False(t, fin.Success)
	assert.Empty(t, f.git.tags)
}

func TestDeployCITimeoutIsSoft(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.host.waitErr = hosting.ErrCITimeout

	run, err := f.orch.Start(context.Background(), deployment.Options{
		BumpKind:  version.BumpPatch,
		WaitForCI: true,
	})
	require.NoError(t, err)

	events := collect(t, run)
	fin := finished(t, events)
	assert.True(t, fin.Success, "CI timeout must not fail the deployment")

	var sawWarning bool
	for _, e := range events {
		if e.Kind == deployment.EventLog && e.Severity == deployment.SeverityWarning {
			sawWarning = true
		}
	}
	assert.True(t, sawWarning, "CI timeout must emit a warning")
	assert.Equal(t, []string{"develop-alice-smith"}, f.git.merged)
}

func TestDeployCIFailureAborts(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.host.pipeline = hosting.PipelineFailure

	run, err := f.orch.Start(context.Background(), deployment.Options{
		BumpKind:  version.BumpPatch,
		WaitForCI: true,
	})
	require.NoError(t, err)

	fin := finished(t, collect(t, run))
	assert.False(t, fin.Success)
	assert.Empty(t, f.git.merged)
	assert.Empty(t, f.git.tags)
}

func TestDeployDuplicateTagFails(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.git.tagErr = sourcecontrol.ErrTagAlreadyExists

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	fin := finished(t, collect(t, run))
	assert.False(t, fin.Success)
	assert.Empty(t, f.host.releases)
}

func TestDeployWithoutHostSkipsRelease(t *testing.T) {
	f := newFixture(t, "1.0.0")
	f.orch = New(DefaultConfig(), f.git, nil, nil, f.store, f.cl, nil)

	run, err := f.orch.Start(context.Background(), deployment.Options{BumpKind: version.BumpPatch})
	require.NoError(t, err)

	events := collect(t, run)
	fin := finished(t, events)
	assert.True(t, fin.Success, "missing token skips publication but deploys")
	assert.Empty(t, fin.ReleaseURL)

	var sawSkipWarning bool
	for _, e := range events {
		if e.Kind == deployment.EventLog && e.Severity == deployment.SeverityWarning {
			sawSkipWarning = true
		}
	}
	assert.True(t, sawSkipWarning)
}

func TestDeployDryRunHasNoSideEffects(t *testing.T) {
	f := newFixture(t, "1.0.0")

	run, err := f.orch.Start(context.Background(), deployment.Options{
		BumpKind: version.BumpPatch,
		DryRun:   true,
	})
	require.NoError(t, err)

	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)

	assert.Empty(t, f.git.branches)
	assert.Empty(t, f.git.commits)
	assert.Empty(t, f.git.tags)
	assert.Empty(t, f.host.releases)

	current, err := f.store.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String(), "dry run must not touch the version file")

	history, herr := f.store.History(context.Background())
	require.NoError(t, herr)
	assert.Empty(t, history)
}

func TestDeployExplicitVersion(t *testing.T) {
	f := newFixture(t, "1.0.0")

	target := version.MustParse("3.0.0")
	run, err := f.orch.Start(context.Background(), deployment.Options{ExplicitVersion: &target})
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", run.Version().String())

	fin := finished(t, collect(t, run))
	assert.True(t, fin.Success)
	assert.Equal(t, []string{"v3.0.0"}, f.git.tags)
}
