package ports

import (
	"context"
	"time"
)

// Cache defines the key-value capability backing fast puzzle reads.
// Adapters may be backed by Redis or a SQL table. Entries are only ever
// written or expired, never deleted.
type Cache interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
