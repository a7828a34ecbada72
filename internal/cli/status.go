package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devsync-tools/devsync/internal/domain/version"
	"github.com/devsync-tools/devsync/internal/infrastructure/persistence"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current version and repository state",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store := newVersionStore()
	current, err := store.Current(ctx)
	versionKnown := true
	if err != nil {
		if !errors.Is(err, persistence.ErrVersionFileMissing) {
			return err
		}
		versionKnown = false
		current = version.Zero
	}

	gitClient, err := newGitClient()
	if err != nil {
		return err
	}

	branch, err := gitClient.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	treeStatus, err := gitClient.Status(ctx)
	if err != nil {
		return err
	}

	latestTag, err := gitClient.LatestVersionTag(ctx, cfg.Deploy.TagPrefix)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		out := map[string]any{
			"branch": branch,
			"clean":  treeStatus.IsClean,
		}
		if versionKnown {
			out["version"] = current.String()
		}
		if latestTag != nil {
			out["latest_tag"] = latestTag.Name
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	printTitle("Project status")
	if versionKnown {
		fmt.Printf("  version:    %s\n", styles.Bold.Render(current.String()))
	} else {
		printWarning("no version file found")
	}
	fmt.Printf("  branch:     %s\n", branch)
	if latestTag != nil {
		fmt.Printf("  latest tag: %s\n", latestTag.Name)
	}
	if treeStatus.IsClean {
		printSuccess("working tree clean")
	} else {
		printWarning(fmt.Sprintf("working tree dirty: %d modified, %d untracked",
			len(treeStatus.Modified), len(treeStatus.Untracked)))
	}
	return nil
}
