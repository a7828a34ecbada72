package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devsync-tools/devsync/internal/domain/version"
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback <version>",
	Short: "Roll the project version back to a past deployment",
	Long: `Roll the project version back to an earlier version.

The version file is rewritten and a rollback record is appended to the
history; no git operations are performed. When the target matches a
past successful deployment, its branch and commit are carried onto the
rollback record.`,
	Args: cobra.ExactArgs(1),
	RunE: runRollback,
}

func runRollback(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	target, err := version.Parse(args[0])
	if err != nil {
		return err
	}

	if dryRun {
		printSubtle(fmt.Sprintf("dry run: would roll back to %s", target))
		return nil
	}

	gitClient, err := newGitClient()
	if err != nil {
		return err
	}
	user, err := gitClient.Username(ctx)
	if err != nil {
		return err
	}

	rec, err := newVersionStore().Rollback(ctx, target, user)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(rec)
	}
	printSuccess(fmt.Sprintf("rolled back to version %s", rec.Version))
	return nil
}
