package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fairwaymarket/teesheet/internal/booking"
	"github.com/fairwaymarket/teesheet/internal/course"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// CourseStore resolves course rows for incoming requests.
type CourseStore interface {
	Get(ctx context.Context, id string) (*course.Course, error)
}

// BookingLookup resolves persisted bookings for cancellation.
type BookingLookup interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error)
}

// AdapterFactory builds the provider adapter for a course. Injected so
// handler tests can substitute fakes for the real registry.
type AdapterFactory func(providerID string, rawCfg json.RawMessage) (provider.API, error)

// BookingsHandler exposes the booking flow over HTTP.
type BookingsHandler struct {
	courses      CourseStore
	bookings     BookingLookup
	orchestrator *booking.Orchestrator
	adapterFor   AdapterFactory
	logger       *logging.Logger
}

func NewBookingsHandler(courses CourseStore, bookings BookingLookup, orch *booking.Orchestrator, adapterFor AdapterFactory, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{
		courses:      courses,
		bookings:     bookings,
		orchestrator: orch,
		adapterFor:   adapterFor,
		logger:       logger,
	}
}

// CreateBookingRequest is the POST /bookings payload.
type CreateBookingRequest struct {
	CourseID          string   `json:"course_id"`
	TeeTimeID         string   `json:"tee_time_id"`
	ProviderTeeTimeID string   `json:"provider_tee_time_id"`
	UserID            string   `json:"user_id"`
	Slots             int      `json:"slots"`
	Holes             int      `json:"holes"`
	PlayerNames       []string `json:"player_names,omitempty"`
	Buyer             struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	} `json:"buyer"`
}

// CreateBookingResponse reports the created booking.
type CreateBookingResponse struct {
	BookingID         string `json:"booking_id"`
	ProviderBookingID string `json:"provider_booking_id"`
	SlotsPersisted    int    `json:"slots_persisted"`
	SalesDataAdded    bool   `json:"sales_data_added"`
}

// Create handles POST /bookings.
func (h *BookingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CourseID == "" || req.ProviderTeeTimeID == "" || req.UserID == "" {
		writeError(w, http.StatusBadRequest, "course_id, provider_tee_time_id and user_id are required")
		return
	}
	if req.Slots < 1 {
		writeError(w, http.StatusBadRequest, "slots must be at least 1")
		return
	}
	teeTimeID, err := uuid.Parse(req.TeeTimeID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "tee_time_id must be a uuid")
		return
	}

	c, err := h.courses.Get(r.Context(), req.CourseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown course")
			return
		}
		h.logger.Error("course lookup failed", "course_id", req.CourseID, "error", err)
		writeError(w, http.StatusInternalServerError, "course lookup failed")
		return
	}

	api, err := h.adapterFor(c.ProviderID, c.ProviderConfig)
	if err != nil {
		h.logger.Error("adapter construction failed", "course_id", c.ID, "provider", c.ProviderID, "error", err)
		writeError(w, http.StatusInternalServerError, "provider unavailable")
		return
	}

	outcome, err := h.orchestrator.Book(r.Context(), api, booking.Request{
		CourseID:          c.ID,
		TeeSheetID:        c.TeeSheetID,
		TeeTimeID:         teeTimeID,
		ProviderTeeTimeID: req.ProviderTeeTimeID,
		UserID:            req.UserID,
		Slots:             req.Slots,
		Holes:             req.Holes,
		PlayerNames:       req.PlayerNames,
		Buyer: provider.Customer{
			FirstName: req.Buyer.FirstName,
			LastName:  req.Buyer.LastName,
			Email:     req.Buyer.Email,
			Phone:     req.Buyer.Phone,
		},
	})
	if err != nil {
		if errors.Is(err, provider.ErrNoLongerAvailable) {
			writeError(w, http.StatusConflict, "this time is no longer available")
			return
		}
		h.logger.Error("booking failed",
			"course_id", c.ID,
			"provider", c.ProviderID,
			"user_id", req.UserID,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "booking failed")
		return
	}

	writeJSON(w, http.StatusCreated, CreateBookingResponse{
		BookingID:         outcome.BookingID.String(),
		ProviderBookingID: outcome.ProviderBookingID,
		SlotsPersisted:    outcome.SlotsPersisted,
		SalesDataAdded:    outcome.SalesDataAdded,
	})
}

// Cancel handles DELETE /bookings/{bookingID}.
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "booking id must be a uuid")
		return
	}

	b, err := h.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown booking")
		return
	}

	c, err := h.courses.Get(r.Context(), b.CourseID)
	if err != nil {
		h.logger.Error("course lookup failed", "course_id", b.CourseID, "error", err)
		writeError(w, http.StatusInternalServerError, "course lookup failed")
		return
	}

	api, err := h.adapterFor(c.ProviderID, c.ProviderConfig)
	if err != nil {
		h.logger.Error("adapter construction failed", "course_id", c.ID, "provider", c.ProviderID, "error", err)
		writeError(w, http.StatusInternalServerError, "provider unavailable")
		return
	}

	if err := h.orchestrator.Cancel(r.Context(), api, b.ID, c.ID, c.TeeSheetID, b.ProviderBookingID); err != nil {
		h.logger.Error("cancellation failed",
			"booking_id", b.ID.String(),
			"provider", c.ProviderID,
			"error", err,
		)
		writeError(w, http.StatusBadGateway, "cancellation failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
