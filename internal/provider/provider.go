// Package provider defines the contract every tee-sheet provider adapter
// implements (ForeUp, ClubProphet, Lightspeed, QuickEighteen). All knowledge of
// a provider's wire shapes stays inside its adapter package; callers only ever
// see the canonical types defined here.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Provider ids. These are stable tags persisted on course rows; the factory in
// internal/registry dispatches on them.
const (
	ForeUp        = "foreup"
	ClubProphet   = "clubprophet"
	Lightspeed    = "lightspeed"
	QuickEighteen = "quickeighteen"
)

// Query describes one availability window for a course's tee sheet.
type Query struct {
	CourseID   string
	TeeSheetID string
	Date       time.Time // the day being fetched, local course date
	StartTime  int       // military time lower bound, inclusive (0 = open)
	EndTime    int       // military time upper bound, inclusive (0 = open)
}

// TeeTimeSnapshot is the canonical, provider-agnostic projection of one live
// slot. Fee fields are integer cents; Time is military (1430 == 2:30pm).
// ProviderDate keeps the provider's native timestamp string verbatim because
// the four providers format dates incompatibly and round-trips must not drift.
type TeeTimeSnapshot struct {
	ProviderTeeTimeID       string
	Date                    time.Time // UTC midnight of the slot's date
	ProviderDate            string
	Time                    int
	NumberOfHoles           int
	MaxPlayersPerBooking    int
	AvailableFirstHandSpots int
	GreenFeeCents           int
	CartFeeCents            int
	TaxCents                int
}

// Customer is the canonical provider-side customer record.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// BookingRequest carries everything an adapter needs to create a provider-side
// booking. UserID identifies the marketplace buyer for the error audit trail.
type BookingRequest struct {
	CourseID           string
	TeeSheetID         string
	ProviderTeeTimeID  string
	ProviderCustomerID string
	Slots              int
	Holes              int
	PlayerNames        []string
	UserID             string
}

// BookingResult is the canonical outcome of CreateBooking. SlotIDs is populated
// only by providers that issue their own slot/round identifiers (Lightspeed,
// QuickEighteen); the others derive slot numbers from the booking id.
type BookingResult struct {
	ProviderBookingID string
	SlotIDs           []string
}

// BookingSlot is one player position on a booking. SlotPosition is 1-indexed;
// the first record always belongs to the purchasing customer.
type BookingSlot struct {
	SlotNumber   string
	Name         string
	CustomerID   string
	SlotPosition int
}

// SalesData is the provider-specific sales payload produced by
// SalesDataOptions and consumed by AddSalesData. Fields are a union across
// providers; adapters read only what they wrote.
type SalesData struct {
	ProviderBookingID string
	RoundIDs          []string
	SaleItemID        string
	AmountCents       int
	Players           int
}

// API is the capability contract all four adapters satisfy. All remote
// operations take the token returned by GetToken; capability flags are pure
// and side-effect-free.
type API interface {
	ProviderID() string

	// GetToken returns a valid provider credential, transparently fetching and
	// caching one when the cache is cold or expired.
	GetToken(ctx context.Context) (string, error)

	// FetchTeeTimes returns the provider's live availability for the window,
	// already narrowed to canonical snapshots.
	FetchTeeTimes(ctx context.Context, token string, q Query) ([]TeeTimeSnapshot, error)

	// CreateBooking creates a provider-side booking. Providers that require a
	// multi-step flow run it internally; a mid-flow failure can leave partial
	// provider-side state that is not rolled back here.
	CreateBooking(ctx context.Context, token string, req BookingRequest) (*BookingResult, error)

	// DeleteBooking cancels a provider-side booking. Already-cancelled
	// bookings are not treated as failures when the provider lets us detect
	// that.
	DeleteBooking(ctx context.Context, token, courseID, teeSheetID, bookingID string) error

	// CreateCustomer registers a customer and returns the provider's id for it.
	CreateCustomer(ctx context.Context, token string, c Customer) (string, error)

	// GetCustomer looks a customer up by email. A missing customer is
	// (nil, nil), not an error.
	GetCustomer(ctx context.Context, token, email string) (*Customer, error)

	// SlotsForBooking deterministically constructs the slot records for a
	// booking. Pure: no I/O. slotIDs is the provider-issued id list when the
	// provider returns one, otherwise nil.
	SlotsForBooking(providerBookingID string, slots int, customerID string, slotIDs []string) []BookingSlot

	// SalesDataOptions assembles the sales payload for a completed booking.
	// Only called when ShouldAddSaleData is true.
	SalesDataOptions(ctx context.Context, token string, res *BookingResult, req BookingRequest) (*SalesData, error)

	// AddSalesData submits the sales payload. No-op adapters return nil.
	AddSalesData(ctx context.Context, token string, data *SalesData) error

	// Capability flags. Deterministic, no I/O.
	ShouldAddSaleData() bool
	SupportsPlayerNameChange() bool
	RequireCreatePlayerSlots() bool
}

// Deps are the external collaborators injected into every adapter at
// construction. Injecting the cache (rather than a shared singleton) lets each
// adapter's token lifecycle be tested with a fake.
type Deps struct {
	HTTPClient *http.Client
	Logger     *logging.Logger
	TokenCache tokens.Cache
	TokenStore tokens.Store
	ErrorLog   *errlog.Recorder
	Metrics    *metrics.ProviderMetrics
}

// FillDefaults backfills optional collaborators so adapters can assume
// non-nil logger and HTTP client.
func (d *Deps) FillDefaults() {
	if d.Logger == nil {
		d.Logger = logging.Default()
	}
	if d.HTTPClient == nil {
		d.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
}
