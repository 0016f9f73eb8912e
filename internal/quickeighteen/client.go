package quickeighteen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// client speaks Quick18's per-course subdomain API. Auth is HTTP Basic on
// every call; there is no login endpoint.
type client struct {
	cfg        *Config
	httpClient *http.Client
	logger     *logging.Logger
	errorLog   *errlog.Recorder
	metrics    *metrics.ProviderMetrics
}

// getTeeTimes fetches one day of availability. Quick18 wants "yyyymmdd".
func (c *client) getTeeTimes(ctx context.Context, token string, date time.Time) ([]TeeTimeResponse, error) {
	endpoint := fmt.Sprintf("%s/api/teetimes/matrix?teedate=%s&courseId=%s",
		c.cfg.baseURL(), date.Format("20060102"), url.QueryEscape(c.cfg.CourseID))
	req, err := c.jsonRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out []TeeTimeResponse
	if err := c.send(req, "getTeeTimes", "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *client) createBooking(ctx context.Context, token string, breq provider.BookingRequest) (*BookingResponse, error) {
	endpoint := c.cfg.baseURL() + "/api/reservations"
	body := map[string]any{
		"teeTimeId":  breq.ProviderTeeTimeID,
		"customerId": breq.ProviderCustomerID,
		"players":    breq.Slots,
		"holes":      breq.Holes,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return nil, err
	}
	var out BookingResponse
	if err := c.send(req, "createBooking", breq.UserID, &out); err != nil {
		return nil, err
	}
	if out.ReservationID.String() == "" {
		return nil, fmt.Errorf("quickeighteen: create booking returned no reservation id")
	}
	return &out, nil
}

func (c *client) getBooking(ctx context.Context, token, bookingID string) (*BookingResponse, error) {
	endpoint := c.cfg.baseURL() + "/api/reservations/" + url.PathEscape(bookingID)
	req, err := c.jsonRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out BookingResponse
	if err := c.send(req, "getBooking", "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *client) deleteBooking(ctx context.Context, token, bookingID string) error {
	endpoint := c.cfg.baseURL() + "/api/reservations/" + url.PathEscape(bookingID)
	req, err := c.jsonRequest(ctx, http.MethodDelete, endpoint, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, "deleteBooking", "", nil)
}

func (c *client) searchCustomer(ctx context.Context, token, email string) (*CustomerResponse, error) {
	endpoint := c.cfg.baseURL() + "/api/customers?email=" + url.QueryEscape(email)
	req, err := c.jsonRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out []CustomerResponse
	if err := c.send(req, "getCustomer", "", &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return &out[0], nil
}

func (c *client) createCustomer(ctx context.Context, token string, cust provider.Customer) (string, error) {
	endpoint := c.cfg.baseURL() + "/api/customers"
	body := map[string]any{
		"firstName": cust.FirstName,
		"lastName":  cust.LastName,
		"email":     cust.Email,
		"phone":     cust.Phone,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return "", err
	}
	var out CustomerResponse
	if err := c.send(req, "createCustomer", "", &out); err != nil {
		return "", err
	}
	id := out.CustomerID.String()
	if id == "" {
		return "", fmt.Errorf("quickeighteen: create customer returned no id")
	}
	return id, nil
}

func (c *client) jsonRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("quickeighteen: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("quickeighteen: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Basic "+token)
	}
	return req, nil
}

func (c *client) send(req *http.Request, operation, userID string, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(provider.QuickEighteen, operation, "transport_error", time.Since(started).Seconds())
		return fmt.Errorf("quickeighteen: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(provider.QuickEighteen, operation, "read_error", time.Since(started).Seconds())
		return fmt.Errorf("quickeighteen: read %s response: %w", operation, err)
	}
	c.metrics.ObserveRequest(provider.QuickEighteen, operation, strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &provider.HTTPError{
			Provider: provider.QuickEighteen,
			URL:      req.URL.String(),
			Status:   resp.StatusCode,
			Body:     string(respBody),
		}
		c.errorLog.Record(req.Context(), errlog.Entry{
			UserID:     userID,
			URL:        req.URL.String(),
			Message:    httpErr.Error(),
			StackTrace: errlog.Capture(),
			Details:    map[string]any{"operation": operation, "status": resp.StatusCode},
		})
		return httpErr
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("quickeighteen: decode %s response: %w", operation, err)
	}
	return nil
}
