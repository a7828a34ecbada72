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

var bumpSuffix string

var bumpCmd = &cobra.Command{
	Use:   "bump <kind>",
	Short: "Bump the project version",
	Long: `Bump the project version without deploying.

Kinds: major, minor, patch start a new stable version. alpha, beta, rc
and stable walk the pre-release chain one step at a time. custom sets
an arbitrary suffix given with --suffix.`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"major", "minor", "patch", "alpha", "beta", "rc", "stable", "custom"},
	RunE:      runBump,
}

func init() {
	bumpCmd.Flags().StringVar(&bumpSuffix, "suffix", "", "suffix value for custom bumps")
}

func runBump(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	kind, err := version.ParseBumpKind(args[0])
	if err != nil {
		return err
	}

	store := newVersionStore()
	current, err := store.Current(ctx)
	if err != nil {
		if !errors.Is(err, persistence.ErrVersionFileMissing) {
			return err
		}
		current = version.Initial
		printWarning(fmt.Sprintf("no version file, starting from %s", current))
	}

	var next version.Version
	if kind == version.BumpCustom {
		next, err = current.BumpCustomSuffix(bumpSuffix)
	} else {
		next, err = current.Bump(kind)
	}
	if err != nil {
		return err
	}

	if dryRun {
		printSubtle(fmt.Sprintf("dry run: %s -> %s", current, next))
		return nil
	}

	if err := store.WriteCurrent(ctx, next); err != nil {
		return err
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{
			"previous": current.String(),
			"version":  next.String(),
		})
	}
	printSuccess(fmt.Sprintf("version bumped: %s -> %s", current, next))
	return nil
}
