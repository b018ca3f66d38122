package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "clean",
	Short: "Drop the contents of every configured schema",
	Long: `Drop every object in each configured schema. A schema the engine
created itself is dropped and recreated wholesale; a schema that already
existed keeps its namespace and only loses its objects. Intended for
disposable development and test databases; refuses nothing by itself, so
guard its use at the deployment layer.`,
	RunE: runClean,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := e.Clean(ctx); err != nil {
		return err
	}

	fmt.Fprintln(out, "Clean complete.")

	return nil
}
