package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/flowmigrate/flowmigrate/internal/migration"
)

var infoCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "info",
	Short: "Show migration status",
	Long: `Display every version known to the catalog or the ledger, with its
derived state: PENDING, SUCCESS, FAILED, MISSING, FUTURE, or OUT_OF_ORDER.`,
	RunE: runInfo,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	cfg := AppConfig

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	e, pool, err := connectAndBuildEngine(ctx, cfg, out)
	if err != nil {
		return err
	}
	defer pool.Close()

	infos, err := e.Info(ctx)
	if err != nil {
		return err
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, "No migrations resolved or applied.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tDESCRIPTION\tTYPE\tSTATE\tINSTALLED ON")

	for _, info := range infos {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			info.Version, info.Description, info.Type, info.State, formatInstalledOn(info))
	}

	return w.Flush()
}

func formatInstalledOn(info migration.Info) string {
	if info.Applied == nil {
		return ""
	}

	return info.InstalledOn.Format("2006-01-02 15:04:05")
}
