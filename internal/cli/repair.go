package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "repair",
	Short: "Repair the metadata table",
	Long: `Remove the trailing run of failed-migration rows (those recorded after
the last successful row), restoring the ledger's invariants, then reconcile checksums for
rows whose catalog script content has changed since it was applied.`,
	RunE: runRepair,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(repairCmd)
}

func runRepair(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := e.Repair(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "Repair complete.")

	return nil
}
