package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devsync-tools/devsync/internal/domain/version"
)

var setCmd = &cobra.Command{
	Use:   "set <version>",
	Short: "Set the project version explicitly",
	Long: `Set the project version to an explicit value.

The value must be of the form MAJOR.MINOR.PATCH with an optional
pre-release suffix ("a", "b", "rc" with an optional number, or an
arbitrary custom token). No lineage check is applied.`,
	Args: cobra.ExactArgs(1),
	RunE: runSet,
}

func runSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	v, err := version.Parse(args[0])
	if err != nil {
		return err
	}

	if dryRun {
		printSubtle(fmt.Sprintf("dry run: would set version to %s", v))
		return nil
	}

	if err := newVersionStore().WriteCurrent(ctx, v); err != nil {
		return err
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"version": v.String(),
		})
	}
	printSuccess(fmt.Sprintf("version set to %s", v))
	return nil
}
