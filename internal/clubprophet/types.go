package clubprophet

import "encoding/json"

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// TeeTimeResponse is one slot from ClubProphet's search endpoint. StartTime is
// ISO 8601 with a UTC offset. Fees come in 9- and 18-hole variants as decimal
// dollars.
type TeeTimeResponse struct {
	TeeTimeID        json.Number `json:"teeTimeId"`
	StartTime        string      `json:"startTime"`
	AvailablePlayers int         `json:"availablePlayers"`
	MaxPlayers       int         `json:"maxPlayers"`
	Is18HoleOnly     bool        `json:"is18HoleOnly"`
	Is9HoleOnly      bool        `json:"is9HoleOnly"`
	GreenFee9        json.Number `json:"greenFee9"`
	GreenFee18       json.Number `json:"greenFee18"`
	CartFee9         json.Number `json:"cartFee9"`
	CartFee18        json.Number `json:"cartFee18"`
	Tax              json.Number `json:"tax"`
}

type BookingResponse struct {
	BookingID   json.Number `json:"bookingId"`
	PlayerCount int         `json:"playerCount"`
}

type CustomerResponse struct {
	CustomerID json.Number `json:"customerId"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Email      string      `json:"email"`
	Phone      string      `json:"phoneNumber"`
}

type customerSearchResponse struct {
	Customers []CustomerResponse `json:"customers"`
}

// AvailableSpots returns the slot's free-player count, never negative.
func AvailableSpots(t TeeTimeResponse) int {
	if t.AvailablePlayers < 0 {
		return 0
	}
	return t.AvailablePlayers
}

// BookingID extracts the provider booking id from a create reply.
func BookingID(r BookingResponse) string {
	return r.BookingID.String()
}

// PlayerCount extracts the booked player count from a create reply.
func PlayerCount(r BookingResponse) int {
	return r.PlayerCount
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

// feeCode picks which fee column to read. This mirrors the hole-count rule:
// 18 unless the slot is 9-hole-only, including for slots that allow both.
// TODO: confirm with ClubProphet that mixed 9/18 slots really bill the
// 18-hole fee; this reads like it was lifted from the hole-count branch.
func feeCode(t TeeTimeResponse) int {
	if t.Is18HoleOnly {
		return 18
	}
	if t.Is9HoleOnly {
		return 9
	}
	return 18
}

// holeCount is the slot's playable hole count under the same rule.
func holeCount(t TeeTimeResponse) int {
	if t.Is9HoleOnly {
		return 9
	}
	return 18
}
