package lightspeed

import "encoding/json"

type oauthTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// jsonAPIDocument is the envelope Lightspeed wraps every resource in.
type jsonAPIDocument[T any] struct {
	Data   []jsonAPIResource[T] `json:"data"`
	Errors []jsonAPIError       `json:"errors"`
}

type jsonAPISingle[T any] struct {
	Data   jsonAPIResource[T] `json:"data"`
	Errors []jsonAPIError     `json:"errors"`
}

type jsonAPIResource[T any] struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Attributes T      `json:"attributes"`
}

type jsonAPIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// TeeTimeAttributes is one slot's attribute block. StartTime has no offset;
// it is the course's wall clock. Fees are decimal-dollar strings.
type TeeTimeAttributes struct {
	StartTime     string      `json:"start_time"`
	MaxPlayerSize int         `json:"max_player_size"`
	FreeSlots     int         `json:"free_slots"`
	GreenFee      json.Number `json:"green_fee"`
	CartFee       json.Number `json:"cart_fee"`
	Tax           json.Number `json:"tax"`
	BookableHoles []int       `json:"bookable_holes"`
}

// TeeTimeResource is one slot resource from the availability document.
type TeeTimeResource = jsonAPIResource[TeeTimeAttributes]

type reservationRequestAttributes struct {
	TeeTimeID  string `json:"teetime_id"`
	CustomerID string `json:"customer_id"`
	Holes      int    `json:"holes"`
}

type roundRequestAttributes struct {
	ReservationRequestID string `json:"reservation_request_id"`
	Position             int    `json:"position"`
}

type reservationAttributes struct {
	Status string `json:"status"`
}

// CustomerAttributes is a customer resource's attribute block.
type CustomerAttributes struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// CustomerResource is one customer resource.
type CustomerResource = jsonAPIResource[CustomerAttributes]

// AvailableSpots returns the slot's free-slot count, never negative.
func AvailableSpots(t TeeTimeResource) int {
	if t.Attributes.FreeSlots < 0 {
		return 0
	}
	return t.Attributes.FreeSlots
}

// FindTeeTime locates a slot by its provider id in an availability document.
func FindTeeTime(list []TeeTimeResource, providerTeeTimeID string) *TeeTimeResource {
	for i := range list {
		if list[i].ID == providerTeeTimeID {
			return &list[i]
		}
	}
	return nil
}

// CustomerID extracts the provider customer id from a lookup resource.
func CustomerID(c CustomerResource) string {
	return c.ID
}

// maxHoles picks the slot's playable hole count: the largest bookable option,
// defaulting to 18 when the provider sends none.
func maxHoles(holes []int) int {
	if len(holes) == 0 {
		return 18
	}
	max := holes[0]
	for _, h := range holes {
		if h > max {
			max = h
		}
	}
	return max
}
