// Package teetime holds the canonical tee-time model, its Postgres store, and
// the reconciliation engine that keeps the local cache consistent with each
// provider's live inventory.
package teetime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fairwaymarket/teesheet/internal/provider"
)

// TeeTime is one row of the local availability cache.
//
// AvailableFirstHandSpots is owned exclusively by the reconciliation engine.
// AvailableSecondHandSpots is resale inventory owned by the marketplace and is
// never written from this package.
type TeeTime struct {
	ID                       uuid.UUID
	CourseID                 string
	ProviderTeeTimeID        string
	Date                     time.Time
	ProviderDate             string
	Time                     int
	NumberOfHoles            int
	MaxPlayersPerBooking     int
	AvailableFirstHandSpots  int
	AvailableSecondHandSpots int
	GreenFeeCents            int
	CartFeeCents             int
	TaxCents                 int
	UpdatedAt                time.Time
}

// MatchKeys is the comparable projection of the fields a provider can
// influence. Reconciliation decides update-vs-noop by exact equality of this
// value, so the set of provider-owned fields stays explicit and testable.
type MatchKeys struct {
	Date                    time.Time
	ProviderDate            string
	Time                    int
	NumberOfHoles           int
	MaxPlayersPerBooking    int
	AvailableFirstHandSpots int
	GreenFeeCents           int
	CartFeeCents            int
	TaxCents                int
}

// Keys returns the row's comparable projection.
func (t *TeeTime) Keys() MatchKeys {
	return MatchKeys{
		Date:                    t.Date,
		ProviderDate:            t.ProviderDate,
		Time:                    t.Time,
		NumberOfHoles:           t.NumberOfHoles,
		MaxPlayersPerBooking:    t.MaxPlayersPerBooking,
		AvailableFirstHandSpots: t.AvailableFirstHandSpots,
		GreenFeeCents:           t.GreenFeeCents,
		CartFeeCents:            t.CartFeeCents,
		TaxCents:                t.TaxCents,
	}
}

// SnapshotKeys projects a live provider snapshot the same way.
func SnapshotKeys(s provider.TeeTimeSnapshot) MatchKeys {
	return MatchKeys{
		Date:                    s.Date,
		ProviderDate:            s.ProviderDate,
		Time:                    s.Time,
		NumberOfHoles:           s.NumberOfHoles,
		MaxPlayersPerBooking:    s.MaxPlayersPerBooking,
		AvailableFirstHandSpots: s.AvailableFirstHandSpots,
		GreenFeeCents:           s.GreenFeeCents,
		CartFeeCents:            s.CartFeeCents,
		TaxCents:                s.TaxCents,
	}
}

// Equal compares two projections. Dates compare by instant, not by location,
// so a UTC date and its +00:00 equivalent never produce a false diff.
func (k MatchKeys) Equal(other MatchKeys) bool {
	if !k.Date.Equal(other.Date) {
		return false
	}
	k.Date, other.Date = time.Time{}, time.Time{}
	return k == other
}

// FromSnapshot builds a new row for a slot the cache has not seen before.
func FromSnapshot(courseID string, s provider.TeeTimeSnapshot) TeeTime {
	return TeeTime{
		ID:                      uuid.New(),
		CourseID:                courseID,
		ProviderTeeTimeID:       s.ProviderTeeTimeID,
		Date:                    s.Date,
		ProviderDate:            s.ProviderDate,
		Time:                    s.Time,
		NumberOfHoles:           s.NumberOfHoles,
		MaxPlayersPerBooking:    s.MaxPlayersPerBooking,
		AvailableFirstHandSpots: s.AvailableFirstHandSpots,
		GreenFeeCents:           s.GreenFeeCents,
		CartFeeCents:            s.CartFeeCents,
		TaxCents:                s.TaxCents,
	}
}

// DollarsToCents converts a provider's decimal-dollar amount to integer cents.
// decimal keeps 45.50 exactly 4550; float arithmetic does not.
func DollarsToCents(amount decimal.Decimal) int {
	return int(amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
}

// ParseDollarsToCents parses a decimal-dollar string ("45.50") to cents. An
// empty string is an absent field, not a free item: a slot with missing
// pricing must never index at zero cents, so absence is an error. Genuinely
// free items arrive as "0".
func ParseDollarsToCents(s string) (int, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	if s == "" {
		return 0, fmt.Errorf("teetime: missing dollar amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("teetime: parse dollars %q: %w", s, err)
	}
	return DollarsToCents(d), nil
}

// MilitaryTime converts a clock time to its integer form (14:30 -> 1430).
func MilitaryTime(hour, minute int) int {
	return hour*100 + minute
}

// ParseMilitary parses an "HH:MM" fragment to military time.
func ParseMilitary(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("teetime: malformed clock time %q", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("teetime: malformed hour in %q: %w", hhmm, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("teetime: malformed minute in %q: %w", hhmm, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("teetime: clock time out of range %q", hhmm)
	}
	return MilitaryTime(hour, minute), nil
}

// DateUTC normalizes a calendar date to UTC midnight.
func DateUTC(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
