package lightspeed

import "fmt"

// Booking on Lightspeed is a three-step flow with no cross-step
// transactionality on the provider side: reservation-request, one
// round-request per player, then reservation-confirm. The saga records which
// step it reached so a mid-flow failure leaves observable state instead of an
// anonymous error: support can cancel the dangling reservation request or
// finish confirming it by hand.

// SagaState names the booking flow's observable states.
type SagaState string

const (
	StateRequestCreated SagaState = "request_created"
	StateRoundsPending  SagaState = "rounds_pending"
	StateConfirmed      SagaState = "confirmed"
	StateFailed         SagaState = "failed"
)

// Saga step names, used in failure reports.
const (
	StepReservationRequest = "reservation_request"
	StepRoundRequest       = "round_request"
	StepConfirm            = "confirm"
)

// bookingSaga tracks progress through the flow.
type bookingSaga struct {
	state                SagaState
	reservationRequestID string
	roundIDs             []string
	roundsWanted         int
}

func newBookingSaga(rounds int) *bookingSaga {
	return &bookingSaga{roundsWanted: rounds}
}

func (s *bookingSaga) requestCreated(id string) {
	s.reservationRequestID = id
	s.state = StateRequestCreated
}

func (s *bookingSaga) roundCreated(id string) {
	s.roundIDs = append(s.roundIDs, id)
	s.state = StateRoundsPending
}

func (s *bookingSaga) confirmed() {
	s.state = StateConfirmed
}

func (s *bookingSaga) fail(step string, err error) *SagaError {
	s.state = StateFailed
	return &SagaError{
		Step:                 step,
		ReservationRequestID: s.reservationRequestID,
		RoundsCreated:        len(s.roundIDs),
		RoundsWanted:         s.roundsWanted,
		Err:                  err,
	}
}

// SagaError reports a booking flow that died mid-way, with enough state to
// find the partial reservation on the provider side. Nothing here is rolled
// back automatically.
type SagaError struct {
	Step                 string
	ReservationRequestID string
	RoundsCreated        int
	RoundsWanted         int
	Err                  error
}

func (e *SagaError) Error() string {
	if e.ReservationRequestID == "" {
		return fmt.Sprintf("lightspeed: booking saga failed at %s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("lightspeed: booking saga failed at %s (reservation request %s, %d/%d rounds created): %v",
		e.Step, e.ReservationRequestID, e.RoundsCreated, e.RoundsWanted, e.Err)
}

func (e *SagaError) Unwrap() error { return e.Err }
