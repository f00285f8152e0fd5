package postgres

import (
	"context"
	"errors"
	"fmt"

	"go-wishlist-sync/internal/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements ports.KeyValueStore on the kv_store table.
type Repository struct {
	db DBTX
}

// NewRepository creates a new postgres repository.
func NewRepository(db DBTX) *Repository {
	return &Repository{db: db}
}

var _ ports.KeyValueStore = (*Repository)(nil)

// GetItem retrieves the value stored at key.
func (r *Repository) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM kv_store WHERE key = $1`

	var value string
	err := r.db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to fetch item: %w", err)
	}
	return value, true, nil
}

// SetItem upserts value at key.
func (r *Repository) SetItem(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_store (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}
