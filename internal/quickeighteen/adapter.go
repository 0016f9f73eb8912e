// Package quickeighteen implements the tee-sheet provider contract for
// Quick18.
package quickeighteen

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Adapter implements provider.API for Quick18. The provider has no token
// endpoint; the "token" is the Basic auth credential pair, synthesized locally
// and cached with a long TTL so the shared token plumbing still applies.
type Adapter struct {
	cfg    *Config
	client *client
	tokens *tokens.Manager
	logger *logging.Logger
}

func New(rawCfg json.RawMessage, deps provider.Deps) (*Adapter, error) {
	cfg, err := parseConfig(rawCfg)
	if err != nil {
		return nil, err
	}
	deps.FillDefaults()
	logger := deps.Logger.WithProvider(provider.QuickEighteen)

	c := &client{
		cfg:        cfg,
		httpClient: deps.HTTPClient,
		logger:     logger,
		errorLog:   deps.ErrorLog,
		metrics:    deps.Metrics,
	}

	a := &Adapter{cfg: cfg, client: c, logger: logger}
	a.tokens = tokens.NewManager(provider.QuickEighteen, deps.TokenCache, deps.TokenStore,
		func(ctx context.Context, _ string) (*tokens.Token, error) {
			deps.Metrics.ObserveTokenRefresh(provider.QuickEighteen, "fetch")
			cred := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.Password))
			return &tokens.Token{AccessToken: cred, TTL: 24 * time.Hour}, nil
		}, logger)
	return a, nil
}

func (a *Adapter) ProviderID() string { return provider.QuickEighteen }

func (a *Adapter) GetToken(ctx context.Context) (string, error) {
	return a.tokens.Token(ctx)
}

func (a *Adapter) ShouldAddSaleData() bool        { return false }
func (a *Adapter) SupportsPlayerNameChange() bool { return false }
func (a *Adapter) RequireCreatePlayerSlots() bool { return false }

func (a *Adapter) FetchTeeTimes(ctx context.Context, token string, q provider.Query) ([]provider.TeeTimeSnapshot, error) {
	raw, err := a.client.getTeeTimes(ctx, token, q.Date)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, err)
	}

	snapshots := make([]provider.TeeTimeSnapshot, 0, len(raw))
	for _, t := range raw {
		snap, err := translate(t)
		if err != nil {
			a.logger.Warn("skipping malformed tee time", "teetime_id", t.TeeTimeID.String(), "error", err)
			continue
		}
		if q.StartTime > 0 && snap.Time < q.StartTime {
			continue
		}
		if q.EndTime > 0 && snap.Time > q.EndTime {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// translate narrows one Quick18 slot. The provider splits the timestamp into
// TeeDate ("20060102") and TeeTime ("HH:MM"); ProviderDate keeps them joined
// with a space for the audit trail.
func translate(t TeeTimeResponse) (provider.TeeTimeSnapshot, error) {
	day, err := time.Parse("20060102", t.TeeDate)
	if err != nil {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("quickeighteen: parse date %q: %w", t.TeeDate, err)
	}
	military, err := teetime.ParseMilitary(t.TeeTime)
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	greenFee, err := teetime.ParseDollarsToCents(t.GreenFee.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	cartFee, err := teetime.ParseDollarsToCents(t.CartFee.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	tax, err := teetime.ParseDollarsToCents(t.Tax.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	holes := t.Holes
	if holes == 0 {
		holes = 18
	}
	maxPlayers := t.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 4
	}

	return provider.TeeTimeSnapshot{
		ProviderTeeTimeID:       t.TeeTimeID.String(),
		Date:                    teetime.DateUTC(day.Year(), day.Month(), day.Day()),
		ProviderDate:            t.TeeDate + " " + t.TeeTime,
		Time:                    military,
		NumberOfHoles:           holes,
		MaxPlayersPerBooking:    maxPlayers,
		AvailableFirstHandSpots: AvailableSpots(t),
		GreenFeeCents:           greenFee,
		CartFeeCents:            cartFee,
		TaxCents:                tax,
	}, nil
}

func (a *Adapter) CreateBooking(ctx context.Context, token string, req provider.BookingRequest) (*provider.BookingResult, error) {
	resp, err := a.client.createBooking(ctx, token, req)
	if err != nil {
		if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status == 409 {
			return nil, fmt.Errorf("%w: %s", provider.ErrNoLongerAvailable, req.ProviderTeeTimeID)
		}
		return nil, a.reactToAuthFailure(ctx, err)
	}
	return &provider.BookingResult{
		ProviderBookingID: BookingID(*resp),
		SlotIDs:           resp.SlotIDs,
	}, nil
}

// DeleteBooking cancels a reservation. Quick18 answers some repeated cancels
// with an error rather than a 404, so on failure the booking is re-fetched:
// if it is already cancelled, the delete is treated as an idempotent success.
func (a *Adapter) DeleteBooking(ctx context.Context, token, _ string, _ string, bookingID string) error {
	err := a.client.deleteBooking(ctx, token, bookingID)
	if err == nil {
		return nil
	}
	if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status == 404 {
		a.logger.Info("booking already gone on provider", "booking_id", bookingID)
		return nil
	}
	booking, lookupErr := a.client.getBooking(ctx, token, bookingID)
	if lookupErr == nil && booking != nil && Cancelled(*booking) {
		a.logger.Info("booking already cancelled on provider", "booking_id", bookingID)
		return nil
	}
	return a.reactToAuthFailure(ctx, err)
}

func (a *Adapter) CreateCustomer(ctx context.Context, token string, c provider.Customer) (string, error) {
	id, err := a.client.createCustomer(ctx, token, c)
	if err != nil {
		return "", a.reactToAuthFailure(ctx, err)
	}
	return id, nil
}

func (a *Adapter) GetCustomer(ctx context.Context, token, email string) (*provider.Customer, error) {
	resp, err := a.client.searchCustomer(ctx, token, email)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, err)
	}
	if resp == nil {
		return nil, nil
	}
	return &provider.Customer{
		ID:        CustomerID(*resp),
		FirstName: resp.FirstName,
		LastName:  resp.LastName,
		Email:     resp.Email,
		Phone:     resp.Phone,
	}, nil
}

// SlotsForBooking prefers Quick18's own slot ids, falling back to
// "{bookingID}-{position}" when the reservation record carried none. The
// orchestrator does not call this for Quick18 (RequireCreatePlayerSlots is
// false); it exists so the contract stays total.
func (a *Adapter) SlotsForBooking(providerBookingID string, slots int, customerID string, slotIDs []string) []provider.BookingSlot {
	out := make([]provider.BookingSlot, 0, slots)
	for i := 0; i < slots; i++ {
		slot := provider.BookingSlot{
			SlotNumber:   fmt.Sprintf("%s-%d", providerBookingID, i+1),
			SlotPosition: i + 1,
		}
		if i < len(slotIDs) {
			slot.SlotNumber = slotIDs[i]
		}
		if i == 0 {
			slot.CustomerID = customerID
		} else {
			slot.Name = "Guest"
		}
		out = append(out, slot)
	}
	return out
}

// Quick18 takes no sales submission.
func (a *Adapter) SalesDataOptions(context.Context, string, *provider.BookingResult, provider.BookingRequest) (*provider.SalesData, error) {
	return &provider.SalesData{}, nil
}

func (a *Adapter) AddSalesData(context.Context, string, *provider.SalesData) error {
	return nil
}

func (a *Adapter) reactToAuthFailure(ctx context.Context, err error) error {
	if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.AuthExpired() {
		if rerr := a.tokens.RecoverAuth(ctx); rerr != nil {
			a.logger.Warn("token recovery failed", "error", rerr)
		}
	}
	return err
}
