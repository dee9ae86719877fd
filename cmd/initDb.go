/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"dailypuzzle/internal/bootstrap/config"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
)

// initDbCmd represents the initDb command
var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the puzzle tables (and the SQL KV table when used)",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, deps appDeps) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))
		logging.Info(ctx, "start init-db")

		if err := deps.App.InitSchema(ctx); err != nil {
			logging.Error(ctx, "initialize schema failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "initialize schema")
		}

		target := deps.App.Config.Database.DSN
		if deps.App.DB == nil {
			target = "nothing to migrate"
		} else if deps.App.Config.Database.Driver == config.DriverPostgres {
			target = "postgres"
		}

		logging.Info(ctx, "init-db finished", slog.String("target", target))
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "database schema initialized: %s\n", target); err != nil {
			return errs.Wrap(err, "write init-db output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(initDbCmd)
}
