package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "init",
	Short: "Baseline an existing schema",
	Long: `Insert a synthetic baseline row into the metadata table at
initVersion, marking every migration at or below that version as already
applied without running it. Fails if the ledger already has rows.`,
	RunE: runInit,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := e.Init(ctx); err != nil {
		return err
	}

	fmt.Fprintf(out, "Initialized metadata table with baseline version %s.\n", cfg.InitVersion)

	return nil
}
