package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Provision today's puzzles once and exit",
	Long:  "Runs one provisioning pass synchronously. Intended for an external cron when serve's schedule is disabled.",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		result, err := deps.Provision.Provision(ctx)
		out := cmd.OutOrStdout()
		if _, werr := fmt.Fprintf(out, "date:   %s\nsudoku: %s\nwordle: %s\n", result.Date, orDash(string(result.Sudoku)), orDash(string(result.Wordle))); werr != nil {
			return errs.Wrap(werr, "write provision output")
		}
		if err != nil {
			return errs.Wrap(err, "provision puzzles")
		}

		if _, err := fmt.Fprintln(out, result.Message); err != nil {
			return errs.Wrap(err, "write provision output")
		}
		return nil
	}),
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
