package bootstrap

import (
	"context"
	"log/slog"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"dailypuzzle/internal/bootstrap/config"
	"dailypuzzle/internal/bootstrap/database"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
	cacheinfra "dailypuzzle/internal/infrastructure/cache"
	"dailypuzzle/internal/infrastructure/generator/datamuse"
	"dailypuzzle/internal/infrastructure/generator/sudokugen"
	gormrepo "dailypuzzle/internal/infrastructure/persistence/gormstore/repository"
	"dailypuzzle/internal/infrastructure/persistence/supabase"
	"dailypuzzle/internal/ports"
	"dailypuzzle/internal/scheduler"
	"dailypuzzle/internal/usecase/provision"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(provideRepository),
	fx.Provide(provideCache),
	fx.Provide(
		fx.Annotate(
			sudokugen.New,
			fx.As(new(ports.SudokuGenerator)),
		),
	),
	fx.Provide(
		fx.Annotate(
			provideWordSource,
			fx.As(new(ports.WordSource)),
		),
	),
	fx.Provide(provideProvisionService),
	fx.Provide(provideScheduler),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

// provideDatabase returns a nil *gorm.DB when nothing in this deployment is
// stored through gorm.
func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))
	if !cfg.UsesGorm() {
		logging.Info(logCtx, "gorm database not needed, skipping")
		return nil, nil
	}

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.Close(); err != nil {
				return errs.Wrap(err, "close sql db")
			}
			logging.Info(logCtx, "database connection closed")
			return nil
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideRepository(cfg config.Config, db *gorm.DB) (ports.PuzzleRepository, error) {
	if cfg.Database.Driver == config.DriverSupabase {
		repo, err := supabase.NewRepository(supabase.Config{
			URL: cfg.Supabase.URL,
			Key: cfg.Supabase.Key,
		})
		if err != nil {
			return nil, errs.Wrap(err, "create supabase repository")
		}
		return repo, nil
	}
	return gormrepo.NewPuzzleRepository(db), nil
}

func provideCache(lc fx.Lifecycle, ctx context.Context, cfg config.Config, db *gorm.DB) (ports.Cache, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	if cfg.KV.Driver != config.KVDriverRedis {
		logging.Info(logCtx, "using sql kv store")
		return cacheinfra.NewSQLCache(db), nil
	}

	rdb, err := database.OpenRedis(logCtx, cfg.KV)
	if err != nil {
		return nil, errs.Wrap(err, "open redis")
	}
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			if err := rdb.Close(); err != nil {
				return errs.Wrap(err, "close redis")
			}
			logging.Info(logCtx, "redis connection closed")
			return nil
		},
	})
	return cacheinfra.NewRedisCache(rdb, cfg.KV.Prefix), nil
}

func provideWordSource(cfg config.Config) *datamuse.Client {
	return datamuse.NewClient(datamuse.Config{
		BaseURL: cfg.Generator.WordURL,
		Pattern: cfg.Generator.WordPattern,
		Timeout: cfg.Generator.WordTimeout,
	})
}

type provisionParams struct {
	fx.In

	Config config.Config
	Repo   ports.PuzzleRepository
	Cache  ports.Cache
	Sudoku ports.SudokuGenerator
	Words  ports.WordSource
}

func provideProvisionService(p provisionParams) (*provision.Service, error) {
	difficulty, err := puzzle.ParseDifficulty(p.Config.Generator.SudokuDifficulty)
	if err != nil {
		return nil, err
	}
	return provision.NewService(p.Repo, p.Cache, p.Sudoku, p.Words, provision.Options{
		Difficulty:   difficulty,
		CacheTTL:     p.Config.KV.TTL,
		IsolateKinds: p.Config.Provision.IsolateKinds,
	}), nil
}

func provideScheduler(cfg config.Config, svc *provision.Service) (*scheduler.Runner, error) {
	return scheduler.New(func(ctx context.Context) error {
		_, err := svc.Provision(ctx)
		return err
	}, scheduler.Config{
		At:         cfg.Schedule.At,
		RunOnStart: cfg.Schedule.RunOnStart,
	})
}
