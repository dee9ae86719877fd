package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"dailypuzzle/internal/bootstrap/config"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/infrastructure/persistence/gormstore/model"
)

// App holds the loaded config and the optional gorm connection. DB is nil
// when records live behind Supabase REST and the KV store is Redis.
type App struct {
	Config config.Config
	DB     *gorm.DB
}

// InitSchema migrates the tables this deployment keeps in gorm.
func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	if a.DB == nil {
		logging.Warn(logCtx, "no gorm database configured, skipping schema migration")
		return nil
	}

	var models []any
	if a.Config.Database.Driver != config.DriverSupabase {
		models = append(models, model.Records()...)
	}
	if a.Config.KV.Driver == config.KVDriverSQL {
		models = append(models, &model.PuzzleKV{})
	}

	logging.Info(logCtx, "start schema migration", slog.Int("tables", len(models)))
	if err := a.DB.WithContext(ctx).AutoMigrate(models...); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}

	logging.Info(logCtx, "schema migration completed")
	return nil
}
