package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/fairwaymarket/teesheet/internal/provider"
)

type memStore struct {
	bookings  []Booking
	slots     map[uuid.UUID][]provider.BookingSlot
	cancelled []uuid.UUID
	insertErr error
}

func newMemStore() *memStore {
	return &memStore{slots: make(map[uuid.UUID][]provider.BookingSlot)}
}

func (s *memStore) InsertBooking(_ context.Context, b Booking) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.bookings = append(s.bookings, b)
	return nil
}

func (s *memStore) InsertSlots(_ context.Context, bookingID uuid.UUID, slots []provider.BookingSlot) error {
	s.slots[bookingID] = slots
	return nil
}

func (s *memStore) DeleteSlotsForBooking(_ context.Context, bookingID uuid.UUID) error {
	delete(s.slots, bookingID)
	return nil
}

func (s *memStore) MarkCancelled(_ context.Context, bookingID uuid.UUID) error {
	s.cancelled = append(s.cancelled, bookingID)
	return nil
}

// fakeAdapter is a scriptable provider.API.
type fakeAdapter struct {
	providerID       string
	existingCustomer *provider.Customer
	slotIDs          []string
	saleData         bool
	nameChange       bool
	playerSlots      bool

	createBookingErr error
	salesErr         error

	calls           []string
	createdCustomer bool
	deletedBooking  string
	salesAdded      *provider.SalesData
}

func (f *fakeAdapter) ProviderID() string { return f.providerID }

func (f *fakeAdapter) GetToken(context.Context) (string, error) {
	f.calls = append(f.calls, "GetToken")
	return "tok", nil
}

func (f *fakeAdapter) FetchTeeTimes(context.Context, string, provider.Query) ([]provider.TeeTimeSnapshot, error) {
	return nil, nil
}

func (f *fakeAdapter) CreateBooking(_ context.Context, _ string, req provider.BookingRequest) (*provider.BookingResult, error) {
	f.calls = append(f.calls, "CreateBooking")
	if f.createBookingErr != nil {
		return nil, f.createBookingErr
	}
	return &provider.BookingResult{ProviderBookingID: "pb-1", SlotIDs: f.slotIDs}, nil
}

func (f *fakeAdapter) DeleteBooking(_ context.Context, _, _, _, bookingID string) error {
	f.calls = append(f.calls, "DeleteBooking")
	f.deletedBooking = bookingID
	return nil
}

func (f *fakeAdapter) CreateCustomer(context.Context, string, provider.Customer) (string, error) {
	f.calls = append(f.calls, "CreateCustomer")
	f.createdCustomer = true
	return "cust-new", nil
}

func (f *fakeAdapter) GetCustomer(context.Context, string, string) (*provider.Customer, error) {
	f.calls = append(f.calls, "GetCustomer")
	return f.existingCustomer, nil
}

func (f *fakeAdapter) SlotsForBooking(providerBookingID string, slots int, customerID string, slotIDs []string) []provider.BookingSlot {
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

func (f *fakeAdapter) SalesDataOptions(_ context.Context, _ string, res *provider.BookingResult, req provider.BookingRequest) (*provider.SalesData, error) {
	f.calls = append(f.calls, "SalesDataOptions")
	return &provider.SalesData{ProviderBookingID: res.ProviderBookingID, Players: req.Slots}, nil
}

func (f *fakeAdapter) AddSalesData(_ context.Context, _ string, data *provider.SalesData) error {
	f.calls = append(f.calls, "AddSalesData")
	if f.salesErr != nil {
		return f.salesErr
	}
	f.salesAdded = data
	return nil
}

func (f *fakeAdapter) ShouldAddSaleData() bool        { return f.saleData }
func (f *fakeAdapter) SupportsPlayerNameChange() bool { return f.nameChange }
func (f *fakeAdapter) RequireCreatePlayerSlots() bool { return f.playerSlots }

func testRequest() Request {
	return Request{
		CourseID:          "c1",
		TeeSheetID:        "ts1",
		TeeTimeID:         uuid.New(),
		ProviderTeeTimeID: "tt-1",
		UserID:            "user-1",
		Slots:             4,
		Holes:             18,
		Buyer:             provider.Customer{FirstName: "Pat", LastName: "Lee", Email: "pat@example.com"},
	}
}

func TestBookFullFlow(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "foreup", saleData: true, nameChange: true, playerSlots: true}
	orch := NewOrchestrator(store, nil)

	outcome, err := orch.Book(context.Background(), api, testRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if outcome.ProviderBookingID != "pb-1" {
		t.Fatalf("unexpected provider booking id %q", outcome.ProviderBookingID)
	}
	if !api.createdCustomer {
		t.Fatal("missing customer must be created")
	}
	if len(store.bookings) != 1 {
		t.Fatalf("expected 1 booking, got %d", len(store.bookings))
	}
	if outcome.SlotsPersisted != 4 {
		t.Fatalf("expected 4 slots persisted, got %d", outcome.SlotsPersisted)
	}
	if !outcome.SalesDataAdded {
		t.Fatal("sales data must be submitted for sale-data providers")
	}

	slots := store.slots[outcome.BookingID]
	if len(slots) != 4 {
		t.Fatalf("expected 4 slot rows, got %d", len(slots))
	}
	for i, slot := range slots {
		if slot.SlotPosition != i+1 {
			t.Fatalf("slot %d has position %d", i, slot.SlotPosition)
		}
	}
	if slots[0].CustomerID != "cust-new" || slots[0].Name != "" {
		t.Fatalf("first slot must carry the buyer: %+v", slots[0])
	}
	for _, slot := range slots[1:] {
		if slot.Name != "Guest" || slot.CustomerID != "" {
			t.Fatalf("trailing slots must be guests: %+v", slot)
		}
	}
}

func TestBookReusesExistingCustomer(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{
		providerID:       "foreup",
		playerSlots:      true,
		existingCustomer: &provider.Customer{ID: "cust-77", Email: "pat@example.com"},
	}
	orch := NewOrchestrator(store, nil)

	outcome, err := orch.Book(context.Background(), api, testRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if api.createdCustomer {
		t.Fatal("existing customer must not be re-created")
	}
	if store.slots[outcome.BookingID][0].CustomerID != "cust-77" {
		t.Fatal("first slot must reference the existing customer")
	}
}

func TestBookAppliesPlayerNames(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "lightspeed", playerSlots: true, nameChange: true}
	orch := NewOrchestrator(store, nil)

	req := testRequest()
	req.PlayerNames = []string{"", "Alex", "Sam"}
	outcome, err := orch.Book(context.Background(), api, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	slots := store.slots[outcome.BookingID]
	if slots[0].Name != "" {
		t.Fatalf("empty name must not overwrite the buyer slot, got %q", slots[0].Name)
	}
	if slots[1].Name != "Alex" || slots[2].Name != "Sam" {
		t.Fatalf("names not applied: %+v", slots)
	}
	if slots[3].Name != "Guest" {
		t.Fatalf("unnamed slot must stay a guest, got %q", slots[3].Name)
	}
}

func TestBookSkipsNamesWhenUnsupported(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "clubprophet", playerSlots: true, nameChange: false}
	orch := NewOrchestrator(store, nil)

	req := testRequest()
	req.PlayerNames = []string{"Pat", "Alex", "Sam", "Kim"}
	outcome, err := orch.Book(context.Background(), api, req)
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	for _, slot := range store.slots[outcome.BookingID][1:] {
		if slot.Name != "Guest" {
			t.Fatalf("name change unsupported yet applied: %+v", slot)
		}
	}
}

func TestBookSkipsSlotsWhenNotRequired(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "quickeighteen", playerSlots: false}
	orch := NewOrchestrator(store, nil)

	outcome, err := orch.Book(context.Background(), api, testRequest())
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if outcome.SlotsPersisted != 0 {
		t.Fatalf("expected no slots, got %d", outcome.SlotsPersisted)
	}
	if len(store.slots) != 0 {
		t.Fatal("no slot rows expected")
	}
}

func TestBookAbortsOnProviderFailure(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "foreup", createBookingErr: provider.ErrNoLongerAvailable}
	orch := NewOrchestrator(store, nil)

	_, err := orch.Book(context.Background(), api, testRequest())
	if !errors.Is(err, provider.ErrNoLongerAvailable) {
		t.Fatalf("expected ErrNoLongerAvailable, got %v", err)
	}
	if len(store.bookings) != 0 {
		t.Fatal("failed provider booking must not persist locally")
	}
}

func TestBookSurfacesLocalInsertFailure(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("db down")
	api := &fakeAdapter{providerID: "foreup", playerSlots: true}
	orch := NewOrchestrator(store, nil)

	_, err := orch.Book(context.Background(), api, testRequest())
	if err == nil {
		t.Fatal("expected insert failure to surface")
	}
	if len(store.slots) != 0 {
		t.Fatal("slot insert must not run after a failed booking insert")
	}
}

func TestBookSalesFailureAborts(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "foreup", saleData: true, playerSlots: true, salesErr: errors.New("cart stuck")}
	orch := NewOrchestrator(store, nil)

	if _, err := orch.Book(context.Background(), api, testRequest()); err == nil {
		t.Fatal("expected sales failure to surface")
	}
}

func TestBookCallSequence(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "foreup", saleData: true, playerSlots: true}
	orch := NewOrchestrator(store, nil)

	if _, err := orch.Book(context.Background(), api, testRequest()); err != nil {
		t.Fatalf("book: %v", err)
	}
	want := []string{"GetToken", "GetCustomer", "CreateCustomer", "CreateBooking", "SalesDataOptions", "AddSalesData"}
	if len(api.calls) != len(want) {
		t.Fatalf("call sequence %v, want %v", api.calls, want)
	}
	for i := range want {
		if api.calls[i] != want[i] {
			t.Fatalf("call %d = %s, want %s", i, api.calls[i], want[i])
		}
	}
}

func TestCancel(t *testing.T) {
	store := newMemStore()
	api := &fakeAdapter{providerID: "foreup"}
	orch := NewOrchestrator(store, nil)

	bookingID := uuid.New()
	store.slots[bookingID] = []provider.BookingSlot{{SlotNumber: "pb-1-1"}}

	if err := orch.Cancel(context.Background(), api, bookingID, "c1", "ts1", "pb-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if api.deletedBooking != "pb-1" {
		t.Fatalf("provider delete got %q", api.deletedBooking)
	}
	if _, ok := store.slots[bookingID]; ok {
		t.Fatal("slot rows must be removed")
	}
	if len(store.cancelled) != 1 || store.cancelled[0] != bookingID {
		t.Fatal("booking must be marked cancelled")
	}
}
