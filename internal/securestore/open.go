package securestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

var ErrUnknownBackend = errors.New("unknown store backend")

// OpenBackend builds the backend named by kind. Clients the chosen kind does
// not use may be nil.
func OpenBackend(ctx context.Context, kind string, db *sql.DB, rdb redis.UniversalClient) (Backend, error) {
	switch kind {
	case BackendPostgres:
		if db == nil {
			return nil, fmt.Errorf("%s backend needs a database", kind)
		}
		pg := NewPostgresBackend(db)
		if err := pg.Migrate(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case BackendRedis:
		if rdb == nil {
			return nil, fmt.Errorf("%s backend needs a redis client", kind)
		}
		return NewRedisBackend(rdb, ""), nil
	case BackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, kind)
	}
}
