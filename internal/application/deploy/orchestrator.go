// Package deploy implements the deployment pipeline: version bump,
// changelog update, commit, merge, tag, hosted release, and history.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/devsync-tools/devsync/internal/changelog"
	"github.com/devsync-tools/devsync/internal/domain/deployment"
	"github.com/devsync-tools/devsync/internal/domain/hosting"
	"github.com/devsync-tools/devsync/internal/domain/sourcecontrol"
	"github.com/devsync-tools/devsync/internal/domain/version"
	"github.com/devsync-tools/devsync/internal/infrastructure/persistence"
	"github.com/devsync-tools/devsync/internal/secrets"
)

// ErrDeploymentInProgress indicates another deployment holds the
// single-flight slot.
var ErrDeploymentInProgress = errors.New("a deployment is already in progress")

// eventBuffer sizes each run's event channel. The worker never blocks
// on a slow consumer within a run's lifetime.
const eventBuffer = 64

// Config holds orchestrator settings.
type Config struct {
	// MainBranch is the integration branch name.
	MainBranch string
	// TagPrefix prefixes release tags, normally "v".
	TagPrefix string
	// CIPollInterval is the pipeline polling interval.
	CIPollInterval time.Duration
	// CITimeout bounds pipeline waiting. A timeout is a warning, not a
	// failure.
	CITimeout time.Duration
	// Token is the hosting token, used only to redact log output.
	Token string
}

// DefaultConfig returns the default orchestrator settings.
func DefaultConfig() Config {
	return Config{
		MainBranch:     "main",
		TagPrefix:      "v",
		CIPollInterval: 5 * time.Second,
		CITimeout:      10 * time.Minute,
	}
}

// Orchestrator coordinates deployments. At most one deployment runs at
// a time; starting a second returns ErrDeploymentInProgress.
type Orchestrator struct {
	cfg       Config
	git       sourcecontrol.Client
	host      hosting.Client
	waiter    hosting.PipelineWaiter
	store     *persistence.VersionStore
	changelog *changelog.Store
	logger    *log.Logger
	sem       *semaphore.Weighted
}

// New creates an orchestrator. host and waiter may be nil, in which
// case release publication and CI waiting are skipped with a warning.
func New(
	cfg Config,
	git sourcecontrol.Client,
	host hosting.Client,
	waiter hosting.PipelineWaiter,
	store *persistence.VersionStore,
	cl *changelog.Store,
	logger *log.Logger,
) *Orchestrator {
	if cfg.MainBranch == "" {
		cfg.MainBranch = "main"
	}
	if cfg.TagPrefix == "" {
		cfg.TagPrefix = "v"
	}
	if cfg.CIPollInterval <= 0 {
		cfg.CIPollInterval = 5 * time.Second
	}
	if cfg.CITimeout <= 0 {
		cfg.CITimeout = 10 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		cfg:       cfg,
		git:       git,
		host:      host,
		waiter:    waiter,
		store:     store,
		changelog: cl,
		logger:    logger,
		sem:       semaphore.NewWeighted(1),
	}
}

// Run is a handle to an in-flight deployment.
type Run struct {
	id      string
	version version.Version
	events  chan deployment.Event
	cancel  context.CancelFunc
	done    chan struct{}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Version returns the version this run deploys.
func (r *Run) Version() version.Version { return r.version }

// Events returns the ordered event stream. The channel is closed after
// the finished event.
func (r *Run) Events() <-chan deployment.Event { return r.events }

// Cancel requests cancellation. The run stops at the next step
// boundary.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until the run finished and its events are flushed.
func (r *Run) Wait() { <-r.done }

// Start validates the options, resolves the target version, and
// launches the deployment worker. Validation failures are returned
// synchronously before any side effect.
func (o *Orchestrator) Start(ctx context.Context, opts deployment.Options) (*Run, error) {
	next, err := o.resolveVersion(ctx, opts)
	if err != nil {
		return nil, err
	}

	if !o.sem.TryAcquire(1) {
		return nil, ErrDeploymentInProgress
	}

	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		id:      uuid.NewString(),
		version: next,
		events:  make(chan deployment.Event, eventBuffer),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	go func() {
		defer o.sem.Release(1)
		defer close(run.done)
		defer close(run.events)
		defer cancel()
		o.work(runCtx, run, opts, next)
	}()

	return run, nil
}

// resolveVersion reads the current version and computes the next one
// from the options.
func (o *Orchestrator) resolveVersion(ctx context.Context, opts deployment.Options) (version.Version, error) {
	if opts.ExplicitVersion != nil {
		return *opts.ExplicitVersion, nil
	}

	current, err := o.store.Current(ctx)
	if err != nil {
		if !errors.Is(err, persistence.ErrVersionFileMissing) {
			return version.Zero, err
		}
		current = version.Initial
		o.logger.Warn("version file missing, starting from initial version",
			"version", current.String())
	}

	if opts.BumpKind == version.BumpCustom {
		return current.BumpCustomSuffix(opts.CustomSuffix)
	}
	return current.Bump(opts.BumpKind)
}

// step is one unit of pipeline work.
type step struct {
	state deployment.RunState
	run   func(ctx context.Context) error
}

// runData carries values produced by earlier steps into later ones.
type runData struct {
	username   string
	branch     string
	commit     sourcecontrol.CommitHash
	releaseURL string
	record     *deployment.Record
}

// work executes the pipeline, emitting ordered events. It always ends
// with exactly one finished event.
func (o *Orchestrator) work(ctx context.Context, run *Run, opts deployment.Options, next version.Version) {
	machine, err := deployment.NewRunMachine()
	if err != nil {
		run.events <- deployment.FinishedEvent(false, "", err)
		return
	}

	data := &runData{}
	steps := o.buildSteps(run, opts, next, data)
	total := len(steps)

	for i, st := range steps {
		if err := ctx.Err(); err != nil {
			o.fail(ctx, run, machine, opts, next, data, fmt.Errorf("deployment canceled: %w", err))
			return
		}

		machine.Advance()
		run.events <- deployment.ProgressEvent(st.state, i+1, total)
		o.logger.Info("deployment step", "run", run.id, "step", st.state.String(),
			"progress", fmt.Sprintf("%d/%d", i+1, total))

		if err := st.run(ctx); err != nil {
			o.fail(ctx, run, machine, opts, next, data, err)
			return
		}
	}

	machine.Advance()
	o.logger.Info("deployment completed", "run", run.id, "version", next.String())
	fin := deployment.FinishedEvent(true, next.String(), nil)
	fin.ReleaseURL = data.releaseURL
	fin.Record = data.record
	run.events <- fin
}

// fail records the failure, moves the machine to its terminal state,
// and emits the finished event.
func (o *Orchestrator) fail(ctx context.Context, run *Run, machine *deployment.RunMachine, opts deployment.Options, next version.Version, data *runData, cause error) {
	machine.Fail()

	msg := secrets.Redact(cause.Error(), o.cfg.Token)
	run.events <- deployment.LogEvent(deployment.SeverityError, msg)
	o.logger.Error("deployment failed", "run", run.id, "error", msg)

	fin := deployment.FinishedEvent(false, "", errors.New(msg))
	if !opts.DryRun {
		rec := deployment.NewRecord(next, data.branch, data.commit.String(), data.username, false, msg)
		// Record the failure even when the run context is gone.
		if err := o.store.AppendHistory(context.WithoutCancel(ctx), rec); err != nil {
			o.logger.Error("failed to record deployment failure", "run", run.id, "error", err)
		}
		fin.Record = &rec
	}
	run.events <- fin
}

func (o *Orchestrator) buildSteps(run *Run, opts deployment.Options, next version.Version, data *runData) []step {
	logSkip := func(what string) {
		run.events <- deployment.LogEvent(deployment.SeverityInfo, what+" skipped")
		o.logger.Info(what+" skipped", "run", run.id)
	}

	return []step{
		{deployment.StateValidatingRepo, func(ctx context.Context) error {
			if err := o.git.ValidateRepo(ctx); err != nil {
				return err
			}
			username, err := o.git.Username(ctx)
			if err != nil {
				return err
			}
			data.username = username
			data.branch = sourcecontrol.DevelopBranch(username)
			return nil
		}},

		{deployment.StateBranchReady, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("branch checkout (dry run)")
				return nil
			}
			return o.git.CreateAndCheckoutBranch(ctx, data.branch)
		}},

		{deployment.StateVersionBumped, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("version write (dry run)")
				return nil
			}
			return o.store.WriteCurrent(ctx, next)
		}},

		{deployment.StateChangelogUpdated, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("changelog update (dry run)")
				return nil
			}
			if opts.ChangelogBody == "" {
				logSkip("changelog update (no entry body)")
				return nil
			}
			return o.changelog.AddEntry(changelog.Entry{
				Version: next.String(),
				Date:    time.Now(),
				Body:    opts.ChangelogBody,
			})
		}},

		{deployment.StateCommitted, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("commit and push (dry run)")
				return nil
			}
			hash, err := o.git.CommitAndPush(ctx, sourcecontrol.CommitRequest{
				Message: fmt.Sprintf("chore: bump version to %s", next),
			})
			if err != nil {
				return err
			}
			data.commit = hash
			return nil
		}},

		{deployment.StateMerged, func(ctx context.Context) error {
			if opts.DryRun || opts.SkipMerge {
				logSkip("merge to " + o.cfg.MainBranch)
				return nil
			}
			if opts.WaitForCI {
				if err := o.waitForCI(ctx, run, data.commit.String()); err != nil {
					return err
				}
			}
			return o.git.MergeToMain(ctx, data.branch)
		}},

		{deployment.StateTagged, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("tag creation (dry run)")
				return nil
			}
			tag := o.cfg.TagPrefix + next.String()
			return o.git.CreateTag(ctx, tag, "Release "+next.String())
		}},

		{deployment.StateReleasePublished, func(ctx context.Context) error {
			if opts.DryRun || opts.SkipRelease {
				logSkip("release publication")
				return nil
			}
			if o.host == nil {
				run.events <- deployment.LogEvent(deployment.SeverityWarning,
					"no hosting token available, release publication skipped")
				o.logger.Warn("release publication skipped, no hosting token", "run", run.id)
				return nil
			}
			title := opts.ReleaseTitle
			if title == "" {
				title = next.String()
			}
			url, err := o.host.CreateRelease(ctx, hosting.ReleaseDescriptor{
				TagName:    o.cfg.TagPrefix + next.String(),
				Name:       title,
				Body:       opts.ChangelogBody,
				Draft:      opts.DraftRelease,
				Prerelease: opts.Prerelease || next.IsPrerelease(),
			})
			if err != nil {
				return err
			}
			data.releaseURL = url
			run.events <- deployment.LogEvent(deployment.SeverityInfo, "release published: "+url)
			return nil
		}},

		{deployment.StateHistorySaved, func(ctx context.Context) error {
			if opts.DryRun {
				logSkip("history record (dry run)")
				return nil
			}
			rec := deployment.NewRecord(next, data.branch, data.commit.String(), data.username, true, opts.Notes)
			if err := o.store.AppendHistory(ctx, rec); err != nil {
				return err
			}
			data.record = &rec
			return nil
		}},
	}
}

// waitForCI blocks on the pipeline for the pushed commit. A timeout is
// reported as a warning and the pipeline continues; a failed pipeline
// aborts the deployment.
func (o *Orchestrator) waitForCI(ctx context.Context, run *Run, ref string) error {
	if o.waiter == nil {
		run.events <- deployment.LogEvent(deployment.SeverityWarning,
			"no hosting client available, CI wait skipped")
		return nil
	}

	state, err := o.waiter.WaitForPipeline(ctx, ref, o.cfg.CIPollInterval, o.cfg.CITimeout)
	if err != nil {
		if errors.Is(err, hosting.ErrCITimeout) {
			run.events <- deployment.LogEvent(deployment.SeverityWarning,
				"timed out waiting for CI, continuing without confirmation")
			o.logger.Warn("CI wait timed out", "run", run.id, "ref", ref)
			return nil
		}
		return err
	}
	if state == hosting.PipelineFailure {
		return fmt.Errorf("CI pipeline failed for %s", ref)
	}
	return nil
}
