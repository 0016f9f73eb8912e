package provider

import (
	"errors"
	"fmt"
)

// ErrNoLongerAvailable marks the known race where a slot was booked through
// the provider's own system between our poll and our write. Callers surface a
// friendly "this time is no longer available" message instead of a raw error.
var ErrNoLongerAvailable = errors.New("tee time is no longer available")

// ErrUnknownProvider is returned by the factory for an unrecognized id.
var ErrUnknownProvider = errors.New("unknown tee-sheet provider")

// HTTPError carries a provider's non-2xx response, including the raw body for
// diagnostics. Adapters log it through the error recorder before returning it.
type HTTPError struct {
	Provider string
	URL      string
	Status   int
	Body     string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 300 {
		body = body[:300]
	}
	return fmt.Sprintf("%s: status %d from %s: %s", e.Provider, e.Status, e.URL, body)
}

// AuthExpired reports whether the response indicates an expired or rejected
// credential. Providers mostly send 403 for this; Lightspeed sends 401.
func (e *HTTPError) AuthExpired() bool {
	return e.Status == 401 || e.Status == 403
}

// AsHTTPError unwraps err to an *HTTPError, or nil.
func AsHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return nil
}
