package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// Request is one buyer's purchase of a tee time.
type Request struct {
	CourseID          string
	TeeSheetID        string
	TeeTimeID         uuid.UUID
	ProviderTeeTimeID string
	UserID            string
	Slots             int
	Holes             int
	PlayerNames       []string
	Buyer             provider.Customer
}

// Outcome reports what the flow created.
type Outcome struct {
	BookingID         uuid.UUID
	ProviderBookingID string
	SlotsPersisted    int
	SalesDataAdded    bool
}

// Orchestrator runs the fixed booking sequence against a provider adapter:
// resolve-or-create customer, create booking, persist player slots when the
// provider requires them, then submit sales data when the provider wants it.
// A step failure aborts the remainder; earlier steps are not compensated, so a
// provider booking can outlive a failed local write. That risk is accepted:
// reconciliation re-syncs availability and support handles the orphan.
type Orchestrator struct {
	store  Store
	logger *logging.Logger
}

func NewOrchestrator(store Store, logger *logging.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{store: store, logger: logger}
}

// Book executes the full flow through the given adapter.
func (o *Orchestrator) Book(ctx context.Context, api provider.API, req Request) (*Outcome, error) {
	token, err := api.GetToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("booking: get token: %w", err)
	}

	customerID, err := o.ensureCustomer(ctx, api, token, req.Buyer)
	if err != nil {
		return nil, err
	}

	result, err := api.CreateBooking(ctx, token, provider.BookingRequest{
		CourseID:           req.CourseID,
		TeeSheetID:         req.TeeSheetID,
		ProviderTeeTimeID:  req.ProviderTeeTimeID,
		ProviderCustomerID: customerID,
		Slots:              req.Slots,
		Holes:              req.Holes,
		PlayerNames:        req.PlayerNames,
		UserID:             req.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("booking: create provider booking: %w", err)
	}

	outcome := &Outcome{
		BookingID:         uuid.New(),
		ProviderBookingID: result.ProviderBookingID,
	}

	if err := o.store.InsertBooking(ctx, Booking{
		ID:                outcome.BookingID,
		CourseID:          req.CourseID,
		TeeTimeID:         req.TeeTimeID,
		ProviderBookingID: result.ProviderBookingID,
		UserID:            req.UserID,
		Slots:             req.Slots,
		Status:            "confirmed",
	}); err != nil {
		// The provider booking exists but we have no local record. Surface
		// loudly; there is no automatic rollback.
		o.logger.Error("provider booking created but local insert failed",
			"provider", api.ProviderID(),
			"provider_booking_id", result.ProviderBookingID,
			"user_id", req.UserID,
			"error", err,
		)
		return nil, err
	}

	if api.RequireCreatePlayerSlots() {
		slots := api.SlotsForBooking(result.ProviderBookingID, req.Slots, customerID, result.SlotIDs)
		if len(req.PlayerNames) > 0 && api.SupportsPlayerNameChange() {
			for i := range slots {
				if i < len(req.PlayerNames) && req.PlayerNames[i] != "" {
					slots[i].Name = req.PlayerNames[i]
				}
			}
		}
		if err := o.store.InsertSlots(ctx, outcome.BookingID, slots); err != nil {
			return nil, err
		}
		outcome.SlotsPersisted = len(slots)
	}

	if api.ShouldAddSaleData() {
		sales, err := api.SalesDataOptions(ctx, token, result, provider.BookingRequest{
			CourseID:           req.CourseID,
			TeeSheetID:         req.TeeSheetID,
			ProviderTeeTimeID:  req.ProviderTeeTimeID,
			ProviderCustomerID: customerID,
			Slots:              req.Slots,
			Holes:              req.Holes,
			UserID:             req.UserID,
		})
		if err != nil {
			return nil, fmt.Errorf("booking: sales data options: %w", err)
		}
		if err := api.AddSalesData(ctx, token, sales); err != nil {
			return nil, fmt.Errorf("booking: add sales data: %w", err)
		}
		outcome.SalesDataAdded = true
	}

	return outcome, nil
}

// Cancel deletes the provider booking, then cleans up local slot rows. The
// provider delete is idempotent from our perspective: adapters treat
// detectable already-cancelled bookings as success.
func (o *Orchestrator) Cancel(ctx context.Context, api provider.API, bookingID uuid.UUID, courseID, teeSheetID, providerBookingID string) error {
	token, err := api.GetToken(ctx)
	if err != nil {
		return fmt.Errorf("booking: get token: %w", err)
	}
	if err := api.DeleteBooking(ctx, token, courseID, teeSheetID, providerBookingID); err != nil {
		return fmt.Errorf("booking: delete provider booking: %w", err)
	}
	if err := o.store.DeleteSlotsForBooking(ctx, bookingID); err != nil {
		return err
	}
	return o.store.MarkCancelled(ctx, bookingID)
}

// ensureCustomer is the upsert-by-email step: a missing customer is created,
// an existing one reused.
func (o *Orchestrator) ensureCustomer(ctx context.Context, api provider.API, token string, buyer provider.Customer) (string, error) {
	existing, err := api.GetCustomer(ctx, token, buyer.Email)
	if err != nil {
		return "", fmt.Errorf("booking: look up customer: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}
	id, err := api.CreateCustomer(ctx, token, buyer)
	if err != nil {
		return "", fmt.Errorf("booking: create customer: %w", err)
	}
	return id, nil
}
