package lightspeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/tokens"
)

type memCache struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemCache() *memCache {
	return &memCache{values: make(map[string]string)}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	if !ok {
		return "", tokens.ErrCacheMiss
	}
	return val, nil
}

func (c *memCache) Set(_ context.Context, key, value string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *memCache) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	raw := json.RawMessage(fmt.Sprintf(
		`{"baseUrl":%q,"clientId":"cid","clientSecret":"sec","clubId":"77","refreshToken":"seed-rt","paymentMethodId":"pm-1"}`,
		srv.URL))
	cache := newMemCache()
	a, err := New(raw, provider.Deps{TokenCache: cache})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return a, cache
}

// oauthHandler answers the token endpoint, recording every refresh token it
// was handed and rotating a fresh one on each exchange.
type oauthHandler struct {
	mu        sync.Mutex
	exchanges int
	refreshes []string
}

func (h *oauthHandler) handle(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Path != "/oauth/v2/token" {
		return false
	}
	_ = r.ParseForm()
	h.mu.Lock()
	h.exchanges++
	n := h.exchanges
	h.refreshes = append(h.refreshes, r.PostForm.Get("refresh_token"))
	h.mu.Unlock()
	_ = json.NewEncoder(w).Encode(oauthTokenResponse{
		AccessToken:  fmt.Sprintf("at-%d", n),
		RefreshToken: fmt.Sprintf("rt-%d", n),
		ExpiresIn:    3600,
	})
	return true
}

func TestRefreshTokenRotation(t *testing.T) {
	oauth := &oauthHandler{}
	a, cache := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if oauth.handle(w, r) {
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "at-1" {
		t.Fatalf("got %q", token)
	}

	// A 401 on a real call must trigger one recovery exchange using the
	// rotated refresh token, not the configured seed.
	_, err = a.FetchTeeTimes(context.Background(), token, provider.Query{Date: time.Now()})
	httpErr := provider.AsHTTPError(err)
	if httpErr == nil || httpErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 HTTPError, got %v", err)
	}

	oauth.mu.Lock()
	defer oauth.mu.Unlock()
	if len(oauth.refreshes) != 2 {
		t.Fatalf("expected 2 exchanges, got %d", len(oauth.refreshes))
	}
	if oauth.refreshes[0] != "seed-rt" {
		t.Fatalf("first exchange must use the seed, got %q", oauth.refreshes[0])
	}
	if oauth.refreshes[1] != "rt-1" {
		t.Fatalf("recovery must use the rotated token, got %q", oauth.refreshes[1])
	}
	if cache.values["provider-lightspeed-token"] != "at-2" {
		t.Fatalf("cache must hold the recovered token, got %q", cache.values["provider-lightspeed-token"])
	}
}

func TestCreateBookingDrivesFullFlow(t *testing.T) {
	oauth := &oauthHandler{}
	var mu sync.Mutex
	var rounds int
	var positions []int
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if oauth.handle(w, r) {
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/reservation-requests") && r.Method == http.MethodPost:
			_, _ = w.Write([]byte(`{"data":{"id":"rr-1","type":"reservation-request"}}`))
		case strings.HasSuffix(r.URL.Path, "/round-requests"):
			var body struct {
				Data struct {
					Attributes roundRequestAttributes `json:"attributes"`
				} `json:"data"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			rounds++
			n := rounds
			positions = append(positions, body.Data.Attributes.Position)
			mu.Unlock()
			fmt.Fprintf(w, `{"data":{"id":"round-%d","type":"round-request"}}`, n)
		case strings.HasSuffix(r.URL.Path, "/confirm") && r.Method == http.MethodPut:
			_, _ = w.Write([]byte(`{"data":{"id":"res-9","type":"reservation","attributes":{"status":"confirmed"}}}`))
		default:
			t.Fatalf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	}))

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	res, err := a.CreateBooking(context.Background(), token, provider.BookingRequest{
		ProviderTeeTimeID:  "tt-5",
		ProviderCustomerID: "cust-1",
		Slots:              3,
		Holes:              18,
	})
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if res.ProviderBookingID != "res-9" {
		t.Fatalf("booking id = %q", res.ProviderBookingID)
	}
	if len(res.SlotIDs) != 3 || res.SlotIDs[0] != "round-1" || res.SlotIDs[2] != "round-3" {
		t.Fatalf("slot ids = %v", res.SlotIDs)
	}
	for i, pos := range positions {
		if pos != i+1 {
			t.Fatalf("round positions = %v", positions)
		}
	}
}

func TestCreateBookingMidFlowFailure(t *testing.T) {
	oauth := &oauthHandler{}
	var mu sync.Mutex
	var rounds int
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if oauth.handle(w, r) {
			return
		}
		switch {
		case strings.HasSuffix(r.URL.Path, "/reservation-requests"):
			_, _ = w.Write([]byte(`{"data":{"id":"rr-1","type":"reservation-request"}}`))
		case strings.HasSuffix(r.URL.Path, "/round-requests"):
			mu.Lock()
			rounds++
			n := rounds
			mu.Unlock()
			if n > 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			fmt.Fprintf(w, `{"data":{"id":"round-%d","type":"round-request"}}`, n)
		default:
			t.Fatalf("unexpected call %s", r.URL.Path)
		}
	}))

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	_, err = a.CreateBooking(context.Background(), token, provider.BookingRequest{ProviderTeeTimeID: "tt-5", Slots: 3})

	var sagaErr *SagaError
	if !errors.As(err, &sagaErr) {
		t.Fatalf("expected SagaError, got %v", err)
	}
	if sagaErr.Step != StepRoundRequest {
		t.Fatalf("failed step = %q", sagaErr.Step)
	}
	if sagaErr.ReservationRequestID != "rr-1" || sagaErr.RoundsCreated != 1 || sagaErr.RoundsWanted != 3 {
		t.Fatalf("partial state wrong: %+v", sagaErr)
	}
	if !strings.Contains(sagaErr.Error(), "rr-1") {
		t.Fatalf("message must name the dangling request: %s", sagaErr.Error())
	}
}

func TestCreateBookingUnprocessableIsNoLongerAvailable(t *testing.T) {
	oauth := &oauthHandler{}
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if oauth.handle(w, r) {
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	_, err = a.CreateBooking(context.Background(), token, provider.BookingRequest{ProviderTeeTimeID: "tt-5", Slots: 2})
	if !errors.Is(err, provider.ErrNoLongerAvailable) {
		t.Fatalf("422 must map to ErrNoLongerAvailable, got %v", err)
	}
}

func TestTranslateWallClock(t *testing.T) {
	res := TeeTimeResource{
		ID: "tt-1",
		Attributes: TeeTimeAttributes{
			StartTime:     "2026-07-04 08:10:00",
			MaxPlayerSize: 4,
			FreeSlots:     2,
			GreenFee:      "60.00",
			CartFee:       "0",
			Tax:           "5.10",
			BookableHoles: []int{9, 18},
		},
	}
	snap, err := translate(res)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if snap.Time != 810 || snap.NumberOfHoles != 18 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.GreenFeeCents != 6000 || snap.TaxCents != 510 {
		t.Fatalf("fee conversion wrong: %+v", snap)
	}
	if !snap.Date.Equal(time.Date(2026, time.July, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %s", snap.Date)
	}
	if snap.ProviderDate != "2026-07-04 08:10:00" {
		t.Fatalf("provider date must survive verbatim, got %q", snap.ProviderDate)
	}
}

func TestTranslateRejectsMissingFees(t *testing.T) {
	// Absent fee fields stringify to ""; missing pricing is an error, not a
	// free slot.
	_, err := translate(TeeTimeResource{
		ID: "tt-1",
		Attributes: TeeTimeAttributes{
			StartTime: "2026-07-04 08:10:00",
			FreeSlots: 2,
		},
	})
	if err == nil {
		t.Fatal("a slot with no pricing must not translate")
	}
}

func TestFindTeeTime(t *testing.T) {
	list := []TeeTimeResource{{ID: "tt-1"}, {ID: "tt-2"}}
	if got := FindTeeTime(list, "tt-2"); got == nil || got.ID != "tt-2" {
		t.Fatalf("find = %+v", got)
	}
	if got := FindTeeTime(list, "tt-9"); got != nil {
		t.Fatalf("missing id must be nil, got %+v", got)
	}
}

func TestMaxHoles(t *testing.T) {
	if got := maxHoles(nil); got != 18 {
		t.Fatalf("empty list must default to 18, got %d", got)
	}
	if got := maxHoles([]int{9}); got != 9 {
		t.Fatalf("got %d", got)
	}
	if got := maxHoles([]int{18, 9}); got != 18 {
		t.Fatalf("got %d", got)
	}
}

func TestSlotsForBookingPrefersRoundIDs(t *testing.T) {
	a := &Adapter{}
	slots := a.SlotsForBooking("res-9", 3, "cust-1", []string{"round-1", "round-2"})
	if slots[0].SlotNumber != "round-1" || slots[1].SlotNumber != "round-2" {
		t.Fatalf("round ids must win: %+v", slots)
	}
	// No recorded round id for the third slot; fall back to positional.
	if slots[2].SlotNumber != "res-9-3" {
		t.Fatalf("fallback slot number = %q", slots[2].SlotNumber)
	}
	if slots[0].CustomerID != "cust-1" || slots[1].Name != "Guest" {
		t.Fatalf("buyer/guest assignment wrong: %+v", slots)
	}
}

func TestSalesDataOptionsRequiresRoundIDs(t *testing.T) {
	a := &Adapter{}
	if _, err := a.SalesDataOptions(context.Background(), "tok", &provider.BookingResult{ProviderBookingID: "res-9"}, provider.BookingRequest{}); err == nil {
		t.Fatal("missing round ids must fail")
	}
	data, err := a.SalesDataOptions(context.Background(), "tok",
		&provider.BookingResult{ProviderBookingID: "res-9", SlotIDs: []string{"round-1"}},
		provider.BookingRequest{Slots: 1})
	if err != nil {
		t.Fatalf("sales options: %v", err)
	}
	if len(data.RoundIDs) != 1 || data.ProviderBookingID != "res-9" {
		t.Fatalf("unexpected sales data: %+v", data)
	}
}

func TestDeleteBookingIdempotentOn404(t *testing.T) {
	oauth := &oauthHandler{}
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if oauth.handle(w, r) {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	token, err := a.GetToken(context.Background())
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if err := a.DeleteBooking(context.Background(), token, "c1", "ts1", "res-gone"); err != nil {
		t.Fatalf("delete of a gone booking must succeed, got %v", err)
	}
}
