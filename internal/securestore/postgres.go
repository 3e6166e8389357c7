package securestore

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

const createSecureItemsTable = `
	CREATE TABLE IF NOT EXISTS secure_items (
		item_key   TEXT PRIMARY KEY,
		item_value BYTEA NOT NULL,
		expires_at TIMESTAMPTZ NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// PostgresBackend stores sealed values in the secure_items table.
type PostgresBackend struct {
	db *sql.DB
}

var (
	_ Backend     = (*PostgresBackend)(nil)
	_ ExpiryIndex = (*PostgresBackend)(nil)
)

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// Migrate creates the backing table when it does not exist yet.
func (b *PostgresBackend) Migrate(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, createSecureItemsTable); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT item_value FROM secure_items WHERE item_key = $1`

	var value []byte
	err := b.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return value, nil
}

func (b *PostgresBackend) Apply(ctx context.Context, ops ...Op) error {
	tx, err := b.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	defer tx.Rollback()

	upsertQuery := `
		INSERT INTO secure_items (item_key, item_value, expires_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (item_key) DO UPDATE
		SET item_value = EXCLUDED.item_value,
			expires_at = EXCLUDED.expires_at,
			updated_at = CURRENT_TIMESTAMP
	`
	deleteQuery := `DELETE FROM secure_items WHERE item_key = $1`

	for _, op := range ops {
		if op.Delete {
			_, err = tx.ExecContext(ctx, deleteQuery, op.Key)
		} else {
			_, err = tx.ExecContext(ctx, upsertQuery, op.Key, op.Value, pq.NullTime{
				Time:  derefTime(op.ExpiresAt),
				Valid: op.ExpiresAt != nil,
			})
		}
		if err != nil {
			slog.Info(err.Error())
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

func (b *PostgresBackend) Expiring(ctx context.Context, after, before time.Time) ([]string, error) {
	query := `
		SELECT item_key FROM secure_items
		WHERE expires_at IS NOT NULL AND expires_at >= $1 AND expires_at < $2
		ORDER BY item_key
	`
	rows, err := b.db.QueryContext(ctx, query, after, before)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return keys, nil
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
