// Package course persists the marketplace's course records: which provider
// runs each course's tee sheet and the credentials blob its adapter needs.
package course

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Course is one course row. ProviderConfig is the opaque per-provider JSON
// blob handed to the adapter factory; nothing outside the adapter parses it.
type Course struct {
	ID             string
	Name           string
	ProviderID     string
	TeeSheetID     string
	ProviderConfig json.RawMessage
	Active         bool
}

// ErrNotFound is returned when a course id has no row.
var ErrNotFound = errors.New("course: not found")

// PgxPool is the subset of pgxpool.Pool the store uses.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore reads course rows from Postgres.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Get loads one course by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Course, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, provider_id, tee_sheet_id, provider_config, active
		FROM courses
		WHERE id = $1`, id)

	var c Course
	if err := row.Scan(&c.ID, &c.Name, &c.ProviderID, &c.TeeSheetID, &c.ProviderConfig, &c.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("course: get %s: %w", id, err)
	}
	return &c, nil
}

// ListActive returns every course the indexer should poll.
func (s *PostgresStore) ListActive(ctx context.Context) ([]Course, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, provider_id, tee_sheet_id, provider_config, active
		FROM courses
		WHERE active = TRUE
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("course: list active: %w", err)
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Name, &c.ProviderID, &c.TeeSheetID, &c.ProviderConfig, &c.Active); err != nil {
			return nil, fmt.Errorf("course: scan row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("course: iterate rows: %w", err)
	}
	return out, nil
}
