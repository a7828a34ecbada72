package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/devsync-tools/devsync/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new DevSync configuration",
	Long: `Initialize a new DevSync configuration in the current directory.

This command writes a devsync.yaml with the default settings. Edit it
to point at your version file, changelog, and code host.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	const path = "devsync.yaml"

	if !initForce {
		if existing, err := config.FindConfigFile("."); err == nil {
			return fmt.Errorf("configuration already exists at %s (use --force to overwrite)", existing)
		}
	}

	if err := config.WriteDefaultConfig(path); err != nil {
		return err
	}

	printSuccess("wrote " + path)
	printSubtle("set GITHUB_TOKEN or hosting.token to enable hosted releases")

	// Seed the version file when the project has none yet.
	defaults := config.DefaultConfig()
	if _, err := os.Stat(defaults.Project.VersionFile); os.IsNotExist(err) {
		printSubtle(fmt.Sprintf("no %s found; create one with 'devsync set <version>'",
			defaults.Project.VersionFile))
	}
	return nil
}
