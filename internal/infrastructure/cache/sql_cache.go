package cache

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dailypuzzle/internal/errs"
	"dailypuzzle/internal/infrastructure/persistence/gormstore/model"
	"dailypuzzle/internal/ports"
)

// SQLCache keeps KV entries in the puzzle_kv table of the relational store.
// Used when no Redis endpoint is configured.
type SQLCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*SQLCache)(nil)

func NewSQLCache(db *gorm.DB) *SQLCache {
	return &SQLCache{db: db, now: time.Now}
}

func (c *SQLCache) Get(ctx context.Context, key string) (string, bool, error) {
	storeKey, err := checkKey(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.PuzzleKV
	if err := c.db.WithContext(ctx).Where("key = ?", storeKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	if row.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339Nano, *row.ExpiresAt)
		if err == nil && !c.now().UTC().Before(expiresAt) {
			return "", false, nil
		}
	}

	return row.Value, true, nil
}

func (c *SQLCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	storeKey, err := checkKey(ctx, key)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	row := model.PuzzleKV{
		Key:       storeKey,
		Value:     value,
		UpdatedAt: now.Format(time.RFC3339Nano),
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl).Format(time.RFC3339Nano)
		row.ExpiresAt = &expiresAt
	}

	if err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *SQLCache) Ping(ctx context.Context) error {
	if _, err := checkKey(ctx, "ping"); err != nil {
		return err
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return errs.Wrap(err, "get sql db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.Wrap(err, "ping cache database")
	}
	return nil
}

// checkKey validates ctx and key. Keys are used byte for byte, surrounding
// whitespace included.
func checkKey(ctx context.Context, key string) (string, error) {
	if ctx == nil {
		return "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return "", errs.Wrap(err, "check context")
	}

	if key == "" {
		return "", errors.New("key is required")
	}
	return key, nil
}
