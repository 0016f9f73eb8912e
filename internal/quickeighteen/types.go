package quickeighteen

import "encoding/json"

// TeeTimeResponse is one slot row from Quick18's matrix endpoint. TeeDate and
// TeeTime arrive as separate fields; TeeDate is "yyyymmdd" and TeeTime is
// "HH:MM".
type TeeTimeResponse struct {
	TeeTimeID      json.Number `json:"teeTimeId"`
	TeeDate        string      `json:"teeDate"`
	TeeTime        string      `json:"teeTime"`
	AvailableSlots int         `json:"availableSlots"`
	MaxPlayers     int         `json:"maxPlayers"`
	Holes          int         `json:"holes"`
	GreenFee       json.Number `json:"greenFee"`
	CartFee        json.Number `json:"cartFee"`
	Tax            json.Number `json:"tax"`
}

// BookingResponse is Quick18's reservation record. SlotIds are the provider's
// own per-player identifiers.
type BookingResponse struct {
	ReservationID json.Number `json:"reservationId"`
	Status        string      `json:"status"`
	SlotIDs       []string    `json:"slotIds"`
}

// CustomerResponse is one row from the customer search endpoint.
type CustomerResponse struct {
	CustomerID json.Number `json:"customerId"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
}

// AvailableSpots returns the slot's open-spot count, never negative.
func AvailableSpots(t TeeTimeResponse) int {
	if t.AvailableSlots < 0 {
		return 0
	}
	return t.AvailableSlots
}

// BookingID extracts the provider booking id from a reservation record.
func BookingID(b BookingResponse) string {
	return b.ReservationID.String()
}

// CustomerID extracts the provider customer id from a search row.
func CustomerID(c CustomerResponse) string {
	return c.CustomerID.String()
}

// Cancelled reports whether the reservation is already cancelled on the
// provider side.
func Cancelled(b BookingResponse) bool {
	return b.Status == "Cancelled" || b.Status == "cancelled"
}
