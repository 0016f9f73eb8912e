// Package booking drives the provider-side booking flow and persists the
// resulting player slots.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairwaymarket/teesheet/internal/provider"
)

// Slot is one persisted player position on a booking.
type Slot struct {
	ID           uuid.UUID
	BookingID    uuid.UUID
	SlotNumber   string
	Name         string
	CustomerID   string
	SlotPosition int
	CreatedAt    time.Time
}

// PgxPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies it.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists bookings and their player slots.
type Store interface {
	InsertBooking(ctx context.Context, b Booking) error
	InsertSlots(ctx context.Context, bookingID uuid.UUID, slots []provider.BookingSlot) error
	DeleteSlotsForBooking(ctx context.Context, bookingID uuid.UUID) error
	MarkCancelled(ctx context.Context, bookingID uuid.UUID) error
}

// Booking is the local record of a provider-side reservation.
type Booking struct {
	ID                uuid.UUID
	CourseID          string
	TeeTimeID         uuid.UUID
	ProviderBookingID string
	UserID            string
	Slots             int
	Status            string
	CreatedAt         time.Time
}

type PostgresStore struct {
	pool PgxPool
}

func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		return nil
	}
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InsertBooking(ctx context.Context, b Booking) error {
	query := `
		INSERT INTO bookings (id, course_id, tee_time_id, provider_booking_id, user_id, slots, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := s.pool.Exec(ctx, query, b.ID, b.CourseID, b.TeeTimeID, b.ProviderBookingID, b.UserID, b.Slots, b.Status); err != nil {
		return fmt.Errorf("booking: insert booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertSlots(ctx context.Context, bookingID uuid.UUID, slots []provider.BookingSlot) error {
	query := `
		INSERT INTO booking_slots (id, booking_id, slot_number, name, customer_id, slot_position)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	for _, slot := range slots {
		if _, err := s.pool.Exec(ctx, query, uuid.New(), bookingID, slot.SlotNumber, slot.Name, slot.CustomerID, slot.SlotPosition); err != nil {
			return fmt.Errorf("booking: insert slot %d: %w", slot.SlotPosition, err)
		}
	}
	return nil
}

func (s *PostgresStore) DeleteSlotsForBooking(ctx context.Context, bookingID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM booking_slots WHERE booking_id = $1`, bookingID); err != nil {
		return fmt.Errorf("booking: delete slots: %w", err)
	}
	return nil
}

// GetBooking loads one booking by id. Missing bookings return pgx.ErrNoRows.
func (s *PostgresStore) GetBooking(ctx context.Context, bookingID uuid.UUID) (*Booking, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, course_id, tee_time_id, provider_booking_id, user_id, slots, status, created_at
		FROM bookings
		WHERE id = $1`, bookingID)

	var b Booking
	if err := row.Scan(&b.ID, &b.CourseID, &b.TeeTimeID, &b.ProviderBookingID, &b.UserID, &b.Slots, &b.Status, &b.CreatedAt); err != nil {
		return nil, fmt.Errorf("booking: get %s: %w", bookingID, err)
	}
	return &b, nil
}

func (s *PostgresStore) MarkCancelled(ctx context.Context, bookingID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `UPDATE bookings SET status = 'cancelled', updated_at = now() WHERE id = $1`, bookingID); err != nil {
		return fmt.Errorf("booking: mark cancelled: %w", err)
	}
	return nil
}
