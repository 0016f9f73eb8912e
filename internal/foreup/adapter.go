// Package foreup implements the tee-sheet provider contract for ForeUp.
package foreup

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/teetime"
	"github.com/fairwaymarket/teesheet/internal/tokens"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Adapter implements provider.API for ForeUp.
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
	logger := deps.Logger.WithProvider(provider.ForeUp)

	c := &client{
		cfg:        cfg,
		httpClient: deps.HTTPClient,
		logger:     logger,
		errorLog:   deps.ErrorLog,
		metrics:    deps.Metrics,
	}

	ttl := time.Duration(cfg.TokenTTLMins) * time.Minute
	if ttl <= 0 {
		ttl = 45 * time.Minute
	}
	a := &Adapter{cfg: cfg, client: c, logger: logger}
	a.tokens = tokens.NewManager(provider.ForeUp, deps.TokenCache, deps.TokenStore,
		func(ctx context.Context, _ string) (*tokens.Token, error) {
			deps.Metrics.ObserveTokenRefresh(provider.ForeUp, "fetch")
			jwt, err := c.login(ctx)
			if err != nil {
				return nil, err
			}
			return &tokens.Token{AccessToken: jwt, TTL: ttl}, nil
		}, logger)
	return a, nil
}

func (a *Adapter) ProviderID() string { return provider.ForeUp }

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

// translate narrows one ForeUp slot to the canonical form. ForeUp timestamps
// are "2006-01-02 15:04" with a single space between date and clock.
func translate(t TeeTimeResponse) (provider.TeeTimeSnapshot, error) {
	datePart, clockPart, ok := strings.Cut(t.Time, " ")
	if !ok {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("foreup: unexpected timestamp %q", t.Time)
	}
	day, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return provider.TeeTimeSnapshot{}, fmt.Errorf("foreup: parse date %q: %w", datePart, err)
	}
	military, err := teetime.ParseMilitary(clockPart)
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

	holes := t.TeeSheetHoles
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
		ProviderDate:            t.Time,
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
	resp, err := a.client.createBooking(ctx, token, req.TeeSheetID, req)
	if err != nil {
		return nil, a.reactToAuthFailure(ctx, err)
	}
	return &provider.BookingResult{ProviderBookingID: BookingID(*resp)}, nil
}

func (a *Adapter) DeleteBooking(ctx context.Context, token, _ string, teeSheetID, bookingID string) error {
	if err := a.client.deleteBooking(ctx, token, teeSheetID, bookingID); err != nil {
		if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.Status == 404 {
			// Already cancelled on the provider side; idempotent success.
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
	resp, err := a.client.getCustomerByEmail(ctx, token, email)
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

// SlotsForBooking builds ForeUp slot records. ForeUp has no slot ids of its
// own, so slot numbers are "{bookingID}-{position}". The first record is the
// purchasing customer; the rest are guests.
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

func (a *Adapter) SalesDataOptions(_ context.Context, _ string, res *provider.BookingResult, req provider.BookingRequest) (*provider.SalesData, error) {
	if a.cfg.SaleItemID == "" {
		return nil, fmt.Errorf("foreup: provider configuration missing saleItemId")
	}
	return &provider.SalesData{
		ProviderBookingID: res.ProviderBookingID,
		SaleItemID:        a.cfg.SaleItemID,
		Players:           req.Slots,
	}, nil
}

// AddSalesData runs ForeUp's cart-checkout, payment, completion sequence. The
// three calls are not transactional on the provider side; a mid-sequence
// failure leaves the cart open for staff to reconcile.
func (a *Adapter) AddSalesData(ctx context.Context, token string, data *provider.SalesData) error {
	cartID, err := a.client.createSalesCart(ctx, token, data)
	if err != nil {
		return a.reactToAuthFailure(ctx, err)
	}
	if err := a.client.paySalesCart(ctx, token, cartID, data.AmountCents); err != nil {
		return a.reactToAuthFailure(ctx, err)
	}
	if err := a.client.completeSalesCart(ctx, token, cartID); err != nil {
		return a.reactToAuthFailure(ctx, err)
	}
	return nil
}

// reactToAuthFailure performs the single token refresh mandated for 401/403
// and returns the original error unchanged. The failed call is not replayed;
// the caller retries with the fresh token if it wants to.
func (a *Adapter) reactToAuthFailure(ctx context.Context, err error) error {
	if httpErr := provider.AsHTTPError(err); httpErr != nil && httpErr.AuthExpired() {
		if rerr := a.tokens.RecoverAuth(ctx); rerr != nil {
			a.logger.Warn("token recovery failed", "error", rerr)
		}
	}
	return err
}
