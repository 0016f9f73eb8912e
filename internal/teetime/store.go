package teetime

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence boundary the indexer writes through. The Postgres
// implementation is below; tests use an in-memory fake.
type Store interface {
	ListForCourseDate(ctx context.Context, courseID string, date time.Time) ([]TeeTime, error)
	Upsert(ctx context.Context, row TeeTime) error
	ZeroFirstHandSpots(ctx context.Context, courseID string, providerTeeTimeIDs []string) error
}

// PostgresStore persists the tee-time cache. (course_id, provider_tee_time_id)
// is the idempotency key: concurrent cycles over overlapping windows may race
// to insert the same slot, and the ON CONFLICT clause makes that benign.
type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		return nil
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListForCourseDate(ctx context.Context, courseID string, date time.Time) ([]TeeTime, error) {
	query := `
		SELECT id, course_id, provider_tee_time_id, date, provider_date, time,
			number_of_holes, max_players_per_booking,
			available_first_hand_spots, available_second_hand_spots,
			green_fee_cents, cart_fee_cents, tax_cents, updated_at
		FROM tee_times
		WHERE course_id = $1 AND date = $2
		ORDER BY time
	`
	rows, err := s.pool.Query(ctx, query, courseID, date)
	if err != nil {
		return nil, fmt.Errorf("teetime: list for course date: %w", err)
	}
	defer rows.Close()

	var out []TeeTime
	for rows.Next() {
		var t TeeTime
		if err := rows.Scan(
			&t.ID, &t.CourseID, &t.ProviderTeeTimeID, &t.Date, &t.ProviderDate, &t.Time,
			&t.NumberOfHoles, &t.MaxPlayersPerBooking,
			&t.AvailableFirstHandSpots, &t.AvailableSecondHandSpots,
			&t.GreenFeeCents, &t.CartFeeCents, &t.TaxCents, &t.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("teetime: scan row: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("teetime: iterate rows: %w", err)
	}
	return out, nil
}

// Upsert writes the provider-owned columns. available_second_hand_spots is
// resale inventory and is deliberately absent from the update list.
func (s *PostgresStore) Upsert(ctx context.Context, row TeeTime) error {
	query := `
		INSERT INTO tee_times (
			id, course_id, provider_tee_time_id, date, provider_date, time,
			number_of_holes, max_players_per_booking, available_first_hand_spots,
			green_fee_cents, cart_fee_cents, tax_cents
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (course_id, provider_tee_time_id)
		DO UPDATE SET
			date = EXCLUDED.date,
			provider_date = EXCLUDED.provider_date,
			time = EXCLUDED.time,
			number_of_holes = EXCLUDED.number_of_holes,
			max_players_per_booking = EXCLUDED.max_players_per_booking,
			available_first_hand_spots = EXCLUDED.available_first_hand_spots,
			green_fee_cents = EXCLUDED.green_fee_cents,
			cart_fee_cents = EXCLUDED.cart_fee_cents,
			tax_cents = EXCLUDED.tax_cents,
			updated_at = now()
	`
	_, err := s.pool.Exec(ctx, query,
		row.ID, row.CourseID, row.ProviderTeeTimeID, row.Date, row.ProviderDate, row.Time,
		row.NumberOfHoles, row.MaxPlayersPerBooking, row.AvailableFirstHandSpots,
		row.GreenFeeCents, row.CartFeeCents, row.TaxCents,
	)
	if err != nil {
		return fmt.Errorf("teetime: upsert %s/%s: %w", row.CourseID, row.ProviderTeeTimeID, err)
	}
	return nil
}

// ZeroFirstHandSpots soft-deletes slots the provider no longer lists. Rows are
// kept so sold second-hand inventory and booking foreign keys survive.
func (s *PostgresStore) ZeroFirstHandSpots(ctx context.Context, courseID string, providerTeeTimeIDs []string) error {
	if len(providerTeeTimeIDs) == 0 {
		return nil
	}
	query := `
		UPDATE tee_times
		SET available_first_hand_spots = 0, updated_at = now()
		WHERE course_id = $1 AND provider_tee_time_id = ANY($2)
	`
	if _, err := s.pool.Exec(ctx, query, courseID, providerTeeTimeIDs); err != nil {
		return fmt.Errorf("teetime: zero first-hand spots: %w", err)
	}
	return nil
}
