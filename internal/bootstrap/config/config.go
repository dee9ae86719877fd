package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/domain/puzzle"
	"dailypuzzle/internal/errs"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverSupabase = "supabase"

	KVDriverSQL   = "sql"
	KVDriverRedis = "redis"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	KV        KVConfig        `mapstructure:"kv"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Provision ProvisionConfig `mapstructure:"provision"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type SupabaseConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

type KVConfig struct {
	Driver string        `mapstructure:"driver"`
	URL    string        `mapstructure:"url"`
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type GeneratorConfig struct {
	SudokuDifficulty string        `mapstructure:"sudoku_difficulty"`
	WordURL          string        `mapstructure:"word_url"`
	WordPattern      string        `mapstructure:"word_pattern"`
	WordTimeout      time.Duration `mapstructure:"word_timeout"`
}

type ScheduleConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	At         string `mapstructure:"at"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

type ProvisionConfig struct {
	IsolateKinds bool `mapstructure:"isolate_kinds"`
}

// UsesGorm reports whether a gorm connection is needed, either for the
// relational records or for the SQL-backed KV table.
func (c Config) UsesGorm() bool {
	return c.Database.Driver != DriverSupabase || c.KV.Driver == KVDriverSQL
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v, err := newViper(logCtx, configFile)
	if err != nil {
		return Config{}, err
	}
	cfg, err := decode(v)
	if err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("kv_driver", cfg.KV.Driver),
		slog.Bool("schedule_enabled", cfg.Schedule.Enabled),
	)

	return cfg, nil
}

// Watch re-reads the config file whenever it changes and passes every valid
// result to onChange. Invalid edits are logged and skipped. It reports false
// when no config file is in use. The watch lasts for the process lifetime.
func Watch(ctx context.Context, configFile string, onChange func(Config)) (bool, error) {
	if ctx == nil {
		return false, errors.New("context is required")
	}
	if onChange == nil {
		return false, errors.New("onChange is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v, err := newViper(logCtx, configFile)
	if err != nil {
		return false, err
	}
	if v.ConfigFileUsed() == "" {
		return false, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		eventCtx := logging.WithAttrs(logCtx,
			slog.String("path", e.Name),
			slog.String("op", e.Op.String()),
		)
		cfg, err := decode(v)
		if err != nil {
			logging.Warn(eventCtx, "config change rejected", slog.Any("err", errs.Loggable(err)))
			return
		}
		logging.Info(eventCtx, "config reloaded")
		onChange(cfg)
	})
	v.WatchConfig()

	logging.Info(logCtx, "watching config file", slog.String("path", v.ConfigFileUsed()))
	return true, nil
}

func newViper(ctx context.Context, configFile string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(ctx, v)

	v.SetEnvPrefix("DP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindDeploymentEnv(v); err != nil {
		return nil, errs.Wrap(err, "bind env")
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(ctx, "config file not found, fallback to defaults and env")
		} else {
			return nil, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(ctx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}
	return v, nil
}

func decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}
	if err := normalize(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// bindDeploymentEnv accepts the unprefixed variable names used by existing
// deployments alongside the DP_ ones.
func bindDeploymentEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"supabase.url": {"DP_SUPABASE_URL", "SUPABASE_URL"},
		"supabase.key": {"DP_SUPABASE_KEY", "SUPABASE_KEY"},
		"kv.url":       {"DP_KV_URL", "KV_PUZZLES"},
	}
	for key, names := range bindings {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return errs.Wrapf(err, "bind %s", key)
		}
	}
	return nil
}

func normalize(cfg *Config) error {
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	switch cfg.Database.Driver {
	case "":
		// Supabase credentials alone select the supabase store.
		cfg.Database.Driver = DriverSQLite
		if strings.TrimSpace(cfg.Supabase.URL) != "" && strings.TrimSpace(cfg.Supabase.Key) != "" {
			cfg.Database.Driver = DriverSupabase
		}
	case "sqlite3":
		cfg.Database.Driver = DriverSQLite
	}
	cfg.KV.Driver = strings.ToLower(strings.TrimSpace(cfg.KV.Driver))
	if cfg.KV.Driver == "" {
		cfg.KV.Driver = KVDriverSQL
		if strings.TrimSpace(cfg.KV.URL) != "" {
			cfg.KV.Driver = KVDriverRedis
		}
	}

	switch cfg.Database.Driver {
	case DriverSQLite, DriverPostgres:
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required")
		}
	case DriverSupabase:
		if cfg.Supabase.URL == "" || cfg.Supabase.Key == "" {
			return errors.New("supabase.url and supabase.key are required for the supabase driver")
		}
		if cfg.KV.Driver == KVDriverSQL && cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for the sql kv store")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	switch cfg.KV.Driver {
	case KVDriverSQL:
	case KVDriverRedis:
		if strings.TrimSpace(cfg.KV.URL) == "" {
			return errors.New("kv.url is required for the redis kv store")
		}
	default:
		return fmt.Errorf("unsupported kv driver %q", cfg.KV.Driver)
	}
	if cfg.KV.TTL < 0 {
		return errors.New("kv.ttl must not be negative")
	}

	if _, err := puzzle.ParseDifficulty(cfg.Generator.SudokuDifficulty); err != nil {
		return errs.Wrap(err, "generator.sudoku_difficulty")
	}
	if cfg.Generator.WordTimeout <= 0 {
		return errors.New("generator.word_timeout must be positive")
	}
	if _, err := time.Parse("15:04", cfg.Schedule.At); err != nil {
		return fmt.Errorf("schedule.at %q must be HH:MM", cfg.Schedule.At)
	}
	return nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "dailypuzzle")
	v.SetDefault("app.env", "local")
	v.SetDefault("http.addr", ":8787")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", ".data/puzzles.sqlite")
	v.SetDefault("kv.driver", "")
	v.SetDefault("kv.prefix", "")
	v.SetDefault("kv.ttl", "0s")
	v.SetDefault("generator.sudoku_difficulty", string(puzzle.DifficultyEasy))
	v.SetDefault("generator.word_url", "https://api.datamuse.com/words")
	v.SetDefault("generator.word_pattern", "?????")
	v.SetDefault("generator.word_timeout", "15s")
	v.SetDefault("schedule.enabled", true)
	v.SetDefault("schedule.at", "00:05")
	v.SetDefault("schedule.run_on_start", true)
	v.SetDefault("provision.isolate_kinds", false)
}
