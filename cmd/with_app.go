package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"dailypuzzle/internal/bootstrap"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/scheduler"
	"dailypuzzle/internal/usecase/provision"
)

// appDeps is what commands get from the fx graph.
type appDeps struct {
	App       *bootstrap.App
	Provision *provision.Service
	Scheduler *scheduler.Runner
}

func withApp(run func(cmd *cobra.Command, args []string, deps appDeps) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var deps appDeps
		fxApp := fx.New(
			bootstrap.Module,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&deps.App, &deps.Provision, &deps.Scheduler),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		if err := run(cmd, args, deps); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}
