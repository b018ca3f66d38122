package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "validate",
	Short: "Validate applied migrations against the resolved catalog",
	Long: `Compare every successfully applied ledger row against its resolved
catalog counterpart's checksum, type, and description, and confirm every
catalog entry at or below head has been applied.`,
	RunE: runValidate,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := e.Validate(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "Validation successful.")

	return nil
}
