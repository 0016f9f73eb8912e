package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairwaymarket/teesheet/internal/booking"
	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/internal/teetime"
)

type fakeCourses struct {
	courses map[string]*course.Course
}

func (f *fakeCourses) Get(_ context.Context, id string) (*course.Course, error) {
	c, ok := f.courses[id]
	if !ok {
		return nil, course.ErrNotFound
	}
	return c, nil
}

type fakeBookings struct {
	bookings map[uuid.UUID]*booking.Booking
}

func (f *fakeBookings) GetBooking(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	b, ok := f.bookings[id]
	if !ok {
		return nil, fmt.Errorf("booking: get %s: not found", id)
	}
	return b, nil
}

type nopBookingStore struct{}

func (nopBookingStore) InsertBooking(context.Context, booking.Booking) error { return nil }
func (nopBookingStore) InsertSlots(context.Context, uuid.UUID, []provider.BookingSlot) error {
	return nil
}
func (nopBookingStore) DeleteSlotsForBooking(context.Context, uuid.UUID) error { return nil }
func (nopBookingStore) MarkCancelled(context.Context, uuid.UUID) error         { return nil }

// fakeAdapter is a scriptable provider.API for handler tests.
type fakeAdapter struct {
	bookErr   error
	deleteErr error
}

func (f *fakeAdapter) ProviderID() string                    { return "fake" }
func (f *fakeAdapter) GetToken(context.Context) (string, error) { return "tok", nil }
func (f *fakeAdapter) ShouldAddSaleData() bool               { return false }
func (f *fakeAdapter) SupportsPlayerNameChange() bool        { return false }
func (f *fakeAdapter) RequireCreatePlayerSlots() bool        { return false }

func (f *fakeAdapter) FetchTeeTimes(context.Context, string, provider.Query) ([]provider.TeeTimeSnapshot, error) {
	return nil, nil
}

func (f *fakeAdapter) CreateBooking(context.Context, string, provider.BookingRequest) (*provider.BookingResult, error) {
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	return &provider.BookingResult{ProviderBookingID: "pb-1"}, nil
}

func (f *fakeAdapter) DeleteBooking(context.Context, string, string, string, string) error {
	return f.deleteErr
}

func (f *fakeAdapter) CreateCustomer(context.Context, string, provider.Customer) (string, error) {
	return "cust-1", nil
}

func (f *fakeAdapter) GetCustomer(context.Context, string, string) (*provider.Customer, error) {
	return &provider.Customer{ID: "cust-1"}, nil
}

func (f *fakeAdapter) SlotsForBooking(string, int, string, []string) []provider.BookingSlot {
	return nil
}

func (f *fakeAdapter) SalesDataOptions(context.Context, string, *provider.BookingResult, provider.BookingRequest) (*provider.SalesData, error) {
	return &provider.SalesData{}, nil
}

func (f *fakeAdapter) AddSalesData(context.Context, string, *provider.SalesData) error { return nil }

func testCourse() *course.Course {
	return &course.Course{
		ID:             "c1",
		Name:           "Pine Valley",
		ProviderID:     "fake",
		TeeSheetID:     "ts1",
		ProviderConfig: json.RawMessage(`{}`),
		Active:         true,
	}
}

func newBookingsHandler(adapter *fakeAdapter, bookings *fakeBookings) *BookingsHandler {
	courses := &fakeCourses{courses: map[string]*course.Course{"c1": testCourse()}}
	orch := booking.NewOrchestrator(nopBookingStore{}, nil)
	factory := func(string, json.RawMessage) (provider.API, error) { return adapter, nil }
	return NewBookingsHandler(courses, bookings, orch, factory, nil)
}

func createBody(courseID string) string {
	return fmt.Sprintf(`{
		"course_id": %q,
		"tee_time_id": %q,
		"provider_tee_time_id": "tt-1",
		"user_id": "user-1",
		"slots": 2,
		"holes": 18,
		"buyer": {"first_name":"Pat","last_name":"Doe","email":"pat@example.com"}
	}`, courseID, uuid.NewString())
}

func TestCreateBooking(t *testing.T) {
	h := newBookingsHandler(&fakeAdapter{}, &fakeBookings{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createBody("c1"))))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp CreateBookingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ProviderBookingID != "pb-1" || resp.BookingID == "" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCreateBookingUnknownCourse(t *testing.T) {
	h := newBookingsHandler(&fakeAdapter{}, &fakeBookings{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createBody("ghost"))))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestCreateBookingGoneSlotIsConflict(t *testing.T) {
	adapter := &fakeAdapter{bookErr: fmt.Errorf("%w: tt-1", provider.ErrNoLongerAvailable)}
	h := newBookingsHandler(adapter, &fakeBookings{})

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(createBody("c1"))))

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "this time is no longer available") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	h := newBookingsHandler(&fakeAdapter{}, &fakeBookings{})

	cases := []string{
		`not json`,
		`{"course_id":"c1","user_id":"u"}`,
		`{"course_id":"c1","provider_tee_time_id":"tt-1","user_id":"u","slots":0,"tee_time_id":"` + uuid.NewString() + `"}`,
		`{"course_id":"c1","provider_tee_time_id":"tt-1","user_id":"u","slots":2,"tee_time_id":"not-a-uuid"}`,
	}
	for _, body := range cases {
		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d", body, rec.Code)
		}
	}
}

func cancelRequest(bookingID string) *http.Request {
	req := httptest.NewRequest(http.MethodDelete, "/bookings/"+bookingID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("bookingID", bookingID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCancelBooking(t *testing.T) {
	bookingID := uuid.New()
	bookings := &fakeBookings{bookings: map[uuid.UUID]*booking.Booking{
		bookingID: {ID: bookingID, CourseID: "c1", ProviderBookingID: "pb-1"},
	}}
	h := newBookingsHandler(&fakeAdapter{}, bookings)

	rec := httptest.NewRecorder()
	h.Cancel(rec, cancelRequest(bookingID.String()))

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestCancelUnknownBooking(t *testing.T) {
	h := newBookingsHandler(&fakeAdapter{}, &fakeBookings{})

	rec := httptest.NewRecorder()
	h.Cancel(rec, cancelRequest(uuid.NewString()))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestCancelBadID(t *testing.T) {
	h := newBookingsHandler(&fakeAdapter{}, &fakeBookings{})

	rec := httptest.NewRecorder()
	h.Cancel(rec, cancelRequest("not-a-uuid"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

// memTeeTimeStore backs the index webhook test.
type memTeeTimeStore struct {
	rows map[string]teetime.TeeTime
}

func (s *memTeeTimeStore) ListForCourseDate(context.Context, string, time.Time) ([]teetime.TeeTime, error) {
	out := make([]teetime.TeeTime, 0, len(s.rows))
	for _, row := range s.rows {
		out = append(out, row)
	}
	return out, nil
}

func (s *memTeeTimeStore) Upsert(_ context.Context, row teetime.TeeTime) error {
	if s.rows == nil {
		s.rows = make(map[string]teetime.TeeTime)
	}
	s.rows[row.ProviderTeeTimeID] = row
	return nil
}

func (s *memTeeTimeStore) ZeroFirstHandSpots(context.Context, string, []string) error { return nil }

func indexRequest(courseID, date string) *http.Request {
	target := "/webhooks/index/" + courseID
	if date != "" {
		target += "?date=" + date
	}
	req := httptest.NewRequest(http.MethodPost, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("courseID", courseID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func newIndexHandler(adapter *fakeAdapter, store *memTeeTimeStore) *IndexHandler {
	courses := &fakeCourses{courses: map[string]*course.Course{"c1": testCourse()}}
	indexer := teetime.NewIndexer(store, nil, nil)
	factory := func(string, json.RawMessage) (provider.API, error) { return adapter, nil }
	return NewIndexHandler(courses, indexer, factory, nil)
}

func TestIndexRun(t *testing.T) {
	h := newIndexHandler(&fakeAdapter{}, &memTeeTimeStore{})

	rec := httptest.NewRecorder()
	h.Run(rec, indexRequest("c1", "2026-09-12"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var resp IndexResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CourseID != "c1" || resp.Date != "2026-09-12" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIndexRunBadDate(t *testing.T) {
	h := newIndexHandler(&fakeAdapter{}, &memTeeTimeStore{})

	rec := httptest.NewRecorder()
	h.Run(rec, indexRequest("c1", "09/12/2026"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}

func TestIndexRunUnknownCourse(t *testing.T) {
	h := newIndexHandler(&fakeAdapter{}, &memTeeTimeStore{})

	rec := httptest.NewRecorder()
	h.Run(rec, indexRequest("ghost", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
}
