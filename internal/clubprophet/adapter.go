// Package clubprophet implements the tee-sheet provider contract for
// ClubProphet (CPS Golf).
package clubprophet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Adapter implements provider.API for ClubProphet.
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
	logger := deps.Logger.WithProvider(provider.ClubProphet)

	c := &client{
		cfg:        cfg,
		httpClient: deps.HTTPClient,
		// One request per 2s keeps us under ClubProphet's WAF threshold.
		limiter:  rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:   logger,
		errorLog: deps.ErrorLog,
		metrics:  deps.Metrics,
	}

	ttl := time.Duration(cfg.TokenTTLMins) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	a := &Adapter{cfg: cfg, client: c, logger: logger}
	a.tokens = tokens.NewManager(provider.ClubProphet, deps.TokenCache, deps.TokenStore,
		func(ctx context.Context, _ string) (*tokens.Token, error) {
			deps.Metrics.ObserveTokenRefresh(provider.ClubProphet, "fetch")
			resp, err := c.login(ctx)
			if err != nil {
				return nil, err
			}
			fetched := &tokens.Token{AccessToken: resp.Token, TTL: ttl}
			if resp.ExpiresIn > 0 {
				// Cache for less than the provider expiry so we never hand out
				// a token about to die mid-call.
				fetched.TTL = time.Duration(resp.ExpiresIn)*time.Second - 5*time.Minute
			}
			return fetched, nil
		}, logger)
	return a, nil
}

func (a *Adapter) ProviderID() string { return provider.ClubProphet }

func (a *Adapter) GetToken(ctx context.Context) (string, error) {
	return a.tokens.Token(ctx)
}

func (a *Adapter) ShouldAddSaleData() bool        { return false }
func (a *Adapter) SupportsPlayerNameChange() bool { return false }
func (a *Adapter) RequireCreatePlayerSlots() bool { return true }

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

// translate narrows one ClubProphet slot. StartTime is ISO 8601 with an
// offset, e.g. "2026-02-09T13:30:00-07:00": the calendar date is the first 10
// characters, the clock the five after the 'T'. The provider's wall-clock is
// authoritative; the offset is not applied.
func translate(t TeeTimeResponse) (provider.TeeTimeSnapshot, error) {
	if len(t.StartTime) < 16 || t.StartTime[10] != 'T' {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("clubprophet: unexpected timestamp %q", t.StartTime)
	}
	day, err := time.Parse("2006-01-02", t.StartTime[:10])
	if err != nil {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("clubprophet: parse date %q: %w", t.StartTime, err)
	}
	military, err := teetime.ParseMilitary(t.StartTime[11:16])
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	greenRaw, cartRaw := t.GreenFee18, t.CartFee18
	if feeCode(t) == 9 {
		greenRaw, cartRaw = t.GreenFee9, t.CartFee9
	}
	greenFee, err := teetime.ParseDollarsToCents(greenRaw.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	cartFee, err := teetime.ParseDollarsToCents(cartRaw.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	tax, err := teetime.ParseDollarsToCents(t.Tax.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	maxPlayers := t.MaxPlayers
	if maxPlayers == 0 {
		maxPlayers = 4
	}

	return provider.TeeTimeSnapshot{
		ProviderTeeTimeID:       t.TeeTimeID.String(),
		Date:                    teetime.DateUTC(day.Year(), day.Month(), day.Day()),
		ProviderDate:            t.StartTime,
		Time:                    military,
		NumberOfHoles:           holeCount(t),
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
			// Someone booked the slot through ClubProphet's own system
			// between our poll and this call.
			return nil, fmt.Errorf("%w: %s", provider.ErrNoLongerAvailable, req.ProviderTeeTimeID)
		}
		return nil, a.reactToAuthFailure(ctx, err)
	}
	return &provider.BookingResult{ProviderBookingID: BookingID(*resp)}, nil
}

func (a *Adapter) DeleteBooking(ctx context.Context, token, _ string, _ string, bookingID string) error {
	if err := a.client.deleteBooking(ctx, token, bookingID); err != nil {
		if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status == 404 {
			a.logger.Info("booking already gone on provider", "booking_id", bookingID)
			return nil
		}
		return a.reactToAuthFailure(ctx, err)
	}
	return nil
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

// SlotsForBooking builds ClubProphet slot records, numbered
// "{bookingID}-{position}" like ForeUp's.
func (a *Adapter) SlotsForBooking(providerBookingID string, slots int, customerID string, _ []string) []provider.BookingSlot {
	out := make([]provider.BookingSlot, 0, slots)
	for i := 0; i < slots; i++ {
		slot := provider.BookingSlot{
			SlotNumber:   fmt.Sprintf("%s-%d", providerBookingID, i+1),
			SlotPosition: i + 1,
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

// ClubProphet takes no sales submission; the pro shop reconciles revenue on
// its side.
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
