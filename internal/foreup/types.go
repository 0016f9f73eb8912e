package foreup

import "encoding/json"

// loginResponse is the credential-exchange reply.
type loginResponse struct {
	JWT string `json:"jwt"`
}

// TeeTimeResponse is one slot in ForeUp's availability feed. Time is a
// space-separated "2006-01-02 15:04" local timestamp; fees are decimal
// dollars.
type TeeTimeResponse struct {
	TeeTimeID      json.Number `json:"teetime_id"`
	Time           string      `json:"time"`
	AvailableSpots int         `json:"available_spots"`
	MaxPlayers     int         `json:"max_players"`
	TeeSheetHoles  int         `json:"teesheet_holes"`
	GreenFee       json.Number `json:"green_fee"`
	CartFee        json.Number `json:"cart_fee"`
	Tax            json.Number `json:"tax"`
}

// BookingResponse is the reply to a reservation create.
type BookingResponse struct {
	ReservationID string `json:"reservation_id"`
	Players       int    `json:"players"`
}

// CustomerResponse is one customer record from the customers endpoint.
type CustomerResponse struct {
	CustomerID json.Number `json:"customer_id"`
	FirstName  string      `json:"first_name"`
	LastName   string      `json:"last_name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone"`
}

// cartResponse is the sales-cart create reply.
type cartResponse struct {
	CartID string `json:"cart_id"`
}

// AvailableSpots returns the slot's free-player count, never negative.
func AvailableSpots(t TeeTimeResponse) int {
	if t.AvailableSpots < 0 {
		return 0
	}
	return t.AvailableSpots
}

// BookingID extracts the provider booking id from a create reply.
func BookingID(r BookingResponse) string {
	return r.ReservationID
}

// PlayerCount extracts the booked player count from a create reply.
func PlayerCount(r BookingResponse) int {
	return r.Players
}

// FindTeeTime locates a slot by its provider id in a feed page.
func FindTeeTime(list []TeeTimeResponse, providerTeeTimeID string) *TeeTimeResponse {
	for i := range list {
		if list[i].TeeTimeID.String() == providerTeeTimeID {
			return &list[i]
		}
	}
	return nil
}

// CustomerID extracts the provider customer id from a lookup record.
func CustomerID(c CustomerResponse) string {
	return c.CustomerID.String()
}
