package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"dailypuzzle/internal/bootstrap/config"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve puzzles over HTTP and run the daily provisioning schedule",
	Args:  cobra.NoArgs,
	RunE: withApp(func(cmd *cobra.Command, _ []string, deps appDeps) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.WithAttrs(ctx, slog.String("command", cmd.CommandPath()))

		addr, _ := cmd.Flags().GetString("addr")
		addr = strings.TrimSpace(addr)
		if addr == "" {
			addr = deps.App.Config.HTTP.Addr
		}

		server := &http.Server{
			Addr:              addr,
			Handler:           newPuzzleHandler(deps.Provision),
			ReadHeaderTimeout: 10 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logging.Info(ctx, "puzzle http server started", slog.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return errs.Wrap(err, "serve http")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return errs.Wrap(err, "shutdown http server")
			}
			logging.Info(ctx, "puzzle http server stopped")
			return nil
		})
		if deps.App.Config.Schedule.Enabled {
			watched, err := config.Watch(ctx, cfgFile, func(next config.Config) {
				if err := deps.Scheduler.Reschedule(next.Schedule.At); err != nil {
					logging.Warn(ctx, "schedule reload failed", slog.Any("err", errs.Loggable(err)))
				}
			})
			if err != nil {
				logging.Warn(ctx, "config watch unavailable", slog.Any("err", errs.Loggable(err)))
			} else if !watched {
				logging.Info(ctx, "no config file, schedule.at is fixed for this process")
			}
			g.Go(func() error {
				return deps.Scheduler.Run(gctx)
			})
		} else {
			logging.Info(ctx, "daily schedule disabled")
		}

		if err := g.Wait(); err != nil {
			logging.Error(ctx, "serve failed", slog.Any("err", errs.Loggable(err)))
			return err
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}
