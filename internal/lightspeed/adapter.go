// Package lightspeed implements the tee-sheet provider contract for
// Lightspeed Golf (formerly Chronogolf).
package lightspeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Adapter implements provider.API for Lightspeed.
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
	logger := deps.Logger.WithProvider(provider.Lightspeed)

	c := &client{
		cfg:        cfg,
		httpClient: deps.HTTPClient,
		logger:     logger,
		errorLog:   deps.ErrorLog,
		metrics:    deps.Metrics,
	}

	a := &Adapter{cfg: cfg, client: c, logger: logger}
	a.tokens = tokens.NewManager(provider.Lightspeed, deps.TokenCache, deps.TokenStore,
		func(ctx context.Context, currentRefresh string) (*tokens.Token, error) {
			deps.Metrics.ObserveTokenRefresh(provider.Lightspeed, "fetch")
			if currentRefresh == "" {
				// First exchange after a cold cache; the configured seed
				// token is only valid until the first rotation.
				currentRefresh = cfg.SeedRefreshToken
			}
			resp, err := c.refreshToken(ctx, currentRefresh)
			if err != nil {
				return nil, err
			}
			fetched := &tokens.Token{
				AccessToken:  resp.AccessToken,
				RefreshToken: resp.RefreshToken,
				TTL:          30 * time.Minute,
			}
			if resp.ExpiresIn > 0 {
				fetched.TTL = time.Duration(resp.ExpiresIn)*time.Second - 5*time.Minute
			}
			return fetched, nil
		}, logger)
	return a, nil
}

func (a *Adapter) ProviderID() string { return provider.Lightspeed }

func (a *Adapter) GetToken(ctx context.Context) (string, error) {
	return a.tokens.Token(ctx)
}

func (a *Adapter) ShouldAddSaleData() bool        { return true }
func (a *Adapter) SupportsPlayerNameChange() bool { return true }
func (a *Adapter) RequireCreatePlayerSlots() bool { return true }

func (a *Adapter) FetchTeeTimes(ctx context.Context, token string, q provider.Query) ([]provider.TeeTimeSnapshot, error) {
	raw, err := a.client.getTeeTimes(ctx, token, q.TeeSheetID, q.Date)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, err)
	}

	snapshots := make([]provider.TeeTimeSnapshot, 0, len(raw))
	for _, t := range raw {
		snap, err := translate(t)
		if err != nil {
			a.logger.Warn("skipping malformed tee time", "teetime_id", t.ID, "error", err)
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

// translate narrows one Lightspeed slot. StartTime is "2006-01-02 15:04:05"
// wall clock with no offset; only the date and HH:MM matter here.
func translate(t TeeTimeResource) (provider.TeeTimeSnapshot, error) {
	if len(t.Attributes.StartTime) < 16 {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("lightspeed: unexpected timestamp %q", t.Attributes.StartTime)
	}
	day, err := time.Parse("2006-01-02", t.Attributes.StartTime[:10])
	if err != nil {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("lightspeed: parse date %q: %w", t.Attributes.StartTime, err)
	}
	military, err := teetime.ParseMilitary(t.Attributes.StartTime[11:16])
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	greenFee, err := teetime.ParseDollarsToCents(t.Attributes.GreenFee.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	cartFee, err := teetime.ParseDollarsToCents(t.Attributes.CartFee.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}
	tax, err := teetime.ParseDollarsToCents(t.Attributes.Tax.String())
	if err != nil {
		return provider.TeeTimeSnapshot{}, err
	}

	maxPlayers := t.Attributes.MaxPlayerSize
	if maxPlayers == 0 {
		maxPlayers = 4
	}

	return provider.TeeTimeSnapshot{
		ProviderTeeTimeID:       t.ID,
		Date:                    teetime.DateUTC(day.Year(), day.Month(), day.Day()),
		ProviderDate:            t.Attributes.StartTime,
		Time:                    military,
		NumberOfHoles:           maxHoles(t.Attributes.BookableHoles),
		MaxPlayersPerBooking:    maxPlayers,
		AvailableFirstHandSpots: AvailableSpots(t),
		GreenFeeCents:           greenFee,
		CartFeeCents:            cartFee,
		TaxCents:                tax,
	}, nil
}

// CreateBooking drives Lightspeed's three-step flow: reservation-request, one
// round-request per player, confirm. Each round id becomes a slot id on the
// result. A mid-flow failure surfaces as a *SagaError naming the step reached;
// provider-side partial state is left for manual reconciliation.
func (a *Adapter) CreateBooking(ctx context.Context, token string, req provider.BookingRequest) (*provider.BookingResult, error) {
	saga := newBookingSaga(req.Slots)

	requestID, err := a.client.createReservationRequest(ctx, token, req)
	if err != nil {
		if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status == 422 {
			return nil, fmt.Errorf("%w: %s", provider.ErrNoLongerAvailable, req.ProviderTeeTimeID)
		}
		return nil, a.reactToAuthFailure(ctx, saga.fail(StepReservationRequest, err))
	}
	saga.requestCreated(requestID)

	for pos := 1; pos <= req.Slots; pos++ {
		roundID, err := a.client.createRoundRequest(ctx, token, requestID, pos)
		if err != nil {
			return nil, a.reactToAuthFailure(ctx, saga.fail(StepRoundRequest, err))
		}
		saga.roundCreated(roundID)
	}

	reservationID, err := a.client.confirmReservation(ctx, token, requestID)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, saga.fail(StepConfirm, err))
	}
	saga.confirmed()

	a.logger.Info("booking saga confirmed",
		"reservation_id", reservationID, "rounds", len(saga.roundIDs))
	return &provider.BookingResult{
		ProviderBookingID: reservationID,
		SlotIDs:           saga.roundIDs,
	}, nil
}

func (a *Adapter) DeleteBooking(ctx context.Context, token, _ string, _ string, bookingID string) error {
	if err := a.client.deleteReservation(ctx, token, bookingID); err != nil {
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
	resp, err := a.client.findCustomer(ctx, token, email)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, err)
	}
	if resp == nil {
		return nil, nil
	}
	return &provider.Customer{
		ID:        CustomerID(*resp),
		FirstName: resp.Attributes.FirstName,
		LastName:  resp.Attributes.LastName,
		Email:     resp.Attributes.Email,
		Phone:     resp.Attributes.Phone,
	}, nil
}

// SlotsForBooking numbers slots by Lightspeed's own round ids when the saga
// returned them, falling back to "{bookingID}-{position}" for legacy bookings
// persisted before round ids were recorded.
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

func (a *Adapter) SalesDataOptions(_ context.Context, _ string, res *provider.BookingResult, req provider.BookingRequest) (*provider.SalesData, error) {
	if len(res.SlotIDs) == 0 {
		return nil, fmt.Errorf("lightspeed: booking %s has no round ids to pay for", res.ProviderBookingID)
	}
	return &provider.SalesData{
		ProviderBookingID: res.ProviderBookingID,
		RoundIDs:          res.SlotIDs,
		Players:           req.Slots,
	}, nil
}

// AddSalesData sends one payment confirmation covering every round of the
// booking.
func (a *Adapter) AddSalesData(ctx context.Context, token string, data *provider.SalesData) error {
	if err := a.client.confirmPayment(ctx, token, data); err != nil {
		return a.reactToAuthFailure(ctx, err)
	}
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
