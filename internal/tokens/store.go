package tokens

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the durable provider_auth_tokens audit trail.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		return nil
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Insert(ctx context.Context, providerID, accessToken, refreshToken string) error {
	query := `
		INSERT INTO provider_auth_tokens (id, provider_id, access_token, refresh_token)
		VALUES ($1, $2, $3, NULLIF($4, ''))
	`
	if _, err := s.pool.Exec(ctx, query, uuid.New(), providerID, accessToken, refreshToken); err != nil {
		return fmt.Errorf("tokens: insert audit row: %w", err)
	}
	return nil
}
