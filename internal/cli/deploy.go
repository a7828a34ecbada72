package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devsync-tools/devsync/internal/domain/deployment"
	"github.com/devsync-tools/devsync/internal/domain/version"
)

var deployFlags struct {
	bump        string
	suffix      string
	setVersion  string
	message     string
	notes       string
	title       string
	skipMerge   bool
	skipRelease bool
	draft       bool
	prerelease  bool
	waitCI      bool
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Run the deployment pipeline",
	Long: `Run the full deployment pipeline.

The pipeline validates the repository, checks out the per-user deploy
branch, bumps the version, updates the changelog, commits and pushes,
merges to the main branch, tags the release, publishes it on the code
host, and appends a record to the deployment history.

At most one deployment runs at a time.`,
	RunE: runDeploy,
}

func init() {
	deployCmd.Flags().StringVarP(&deployFlags.bump, "bump", "b", "patch",
		"version bump kind (major, minor, patch, alpha, beta, rc, stable, custom)")
	deployCmd.Flags().StringVar(&deployFlags.suffix, "suffix", "",
		"suffix value for custom bumps")
	deployCmd.Flags().StringVar(&deployFlags.setVersion, "version", "",
		"deploy an explicit version instead of bumping")
	deployCmd.Flags().StringVarP(&deployFlags.message, "message", "m", "",
		"changelog entry body, also used as release notes")
	deployCmd.Flags().StringVar(&deployFlags.notes, "notes", "",
		"free-form notes stored on the history record")
	deployCmd.Flags().StringVar(&deployFlags.title, "title", "",
		"release title (default: the version)")
	deployCmd.Flags().BoolVar(&deployFlags.skipMerge, "skip-merge", false,
		"leave the deploy branch unmerged")
	deployCmd.Flags().BoolVar(&deployFlags.skipRelease, "skip-release", false,
		"skip publishing a hosted release")
	deployCmd.Flags().BoolVar(&deployFlags.draft, "draft", false,
		"publish the release as a draft")
	deployCmd.Flags().BoolVar(&deployFlags.prerelease, "prerelease", false,
		"mark the hosted release as a pre-release")
	deployCmd.Flags().BoolVar(&deployFlags.waitCI, "wait-ci", false,
		"wait for a green CI pipeline before merging")
}

// deployOptions converts the command flags into run options.
func deployOptions() (deployment.Options, error) {
	opts := deployment.Options{
		CustomSuffix:  deployFlags.suffix,
		ChangelogBody: deployFlags.message,
		Notes:         deployFlags.notes,
		ReleaseTitle:  deployFlags.title,
		SkipMerge:     deployFlags.skipMerge || cfg.Deploy.SkipMerge,
		SkipRelease:   deployFlags.skipRelease || cfg.Deploy.SkipRelease,
		DraftRelease:  deployFlags.draft || cfg.Deploy.DraftRelease,
		Prerelease:    deployFlags.prerelease,
		WaitForCI:     deployFlags.waitCI || cfg.Deploy.WaitForCI,
		DryRun:        dryRun,
	}

	if deployFlags.setVersion != "" {
		v, err := version.Parse(deployFlags.setVersion)
		if err != nil {
			return opts, err
		}
		opts.ExplicitVersion = &v
		return opts, nil
	}

	kind, err := version.ParseBumpKind(deployFlags.bump)
	if err != nil {
		return opts, err
	}
	opts.BumpKind = kind
	return opts, nil
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	opts, err := deployOptions()
	if err != nil {
		return err
	}

	orch, cleanup, err := newOrchestrator(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	run, err := orch.Start(ctx, opts)
	if err != nil {
		return err
	}

	if !IsJSONOutput() {
		printTitle(fmt.Sprintf("Deploying version %s", run.Version()))
		if dryRun {
			printSubtle("dry run: no changes will be made")
		}
	}

	var failed *deployment.Event
	for event := range run.Events() {
		if IsJSONOutput() {
			_ = json.NewEncoder(os.Stdout).Encode(event)
			if event.Kind == deployment.EventFinished && !event.Success {
				e := event
				failed = &e
			}
			continue
		}

		switch event.Kind {
		case deployment.EventProgress:
			printInfo(fmt.Sprintf("[%d/%d] %s",
				event.StepIndex, event.TotalSteps, event.Step))
		case deployment.EventLog:
			switch event.Severity {
			case deployment.SeverityWarning:
				printWarning(event.Message)
			case deployment.SeverityError:
				printError(event.Message)
			default:
				printSubtle(event.Message)
			}
		case deployment.EventFinished:
			if event.Success {
				printSuccess(fmt.Sprintf("deployed version %s", event.Version))
				if event.ReleaseURL != "" {
					printSubtle("release: " + event.ReleaseURL)
				}
			} else {
				e := event
				failed = &e
			}
		}
	}

	if failed != nil {
		return fmt.Errorf("deployment failed: %s", failed.Error)
	}
	return nil
}
