package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the deployment history",
	Long: `Show the deployment history, most recent first.

Each entry records the deployed version, the branch and commit it was
built from, the deploying user, and whether the deployment succeeded.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show (0 for all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	records, err := newVersionStore().History(ctx)
	if err != nil {
		return err
	}

	// Stored oldest first; shown most recent first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	if IsJSONOutput() {
		return json.NewEncoder(os.Stdout).Encode(records)
	}

	if len(records) == 0 {
		printSubtle("no deployments recorded")
		return nil
	}

	printTitle("Deployment history")
	for _, rec := range records {
		marker := styles.Success.Render("✓")
		if !rec.Success {
			marker = styles.Error.Render("✗")
		}

		short := rec.CommitHash
		if len(short) > 7 {
			short = short[:7]
		}

		fmt.Printf("%s %s  %s  %s  %s",
			marker,
			styles.Bold.Render(rec.Version),
			rec.Timestamp.Local().Format("2006-01-02 15:04"),
			rec.User,
			short)
		if rec.Notes != "" {
			fmt.Printf("  %s", styles.Subtle.Render(rec.Notes))
		}
		fmt.Println()
	}
	return nil
}
