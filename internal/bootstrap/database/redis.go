package database

import (
	"context"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"dailypuzzle/internal/bootstrap/config"
	"dailypuzzle/internal/bootstrap/logging"
	"dailypuzzle/internal/errs"
)

// OpenRedis connects to the KV endpoint given as a redis:// or rediss:// URL
// and checks it answers.
func OpenRedis(ctx context.Context, cfg config.KVConfig) (*redis.Client, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, errs.Wrap(err, "parse kv url")
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.Wrapf(err, "ping redis at %s", opts.Addr)
	}

	logging.Info(
		logging.WithAttrs(ctx, slog.String("component", "bootstrap.database")),
		"redis connected",
		slog.String("addr", opts.Addr),
		slog.Int("db", opts.DB),
	)
	return rdb, nil
}
