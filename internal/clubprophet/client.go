package clubprophet

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

	"golang.org/x/time/rate"

	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// client speaks ClubProphet's REST API. Every call carries the X-componentid
// header. Requests are throttled because ClubProphet fronts its API with a WAF
// that rate-limits aggressively.
type client struct {
	cfg        *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logging.Logger
	errorLog   *errlog.Recorder
	metrics    *metrics.ProviderMetrics
}

// login exchanges client credentials for a bearer token.
func (c *client) login(ctx context.Context) (*tokenResponse, error) {
	body := map[string]string{
		"clientId":     c.cfg.ClientID,
		"clientSecret": c.cfg.ClientSecret,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/api/security/token", "", body)
	if err != nil {
		return nil, err
	}
	var out tokenResponse
	if err := c.send(req, "login", "", &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, fmt.Errorf("clubprophet: token exchange returned empty token")
	}
	return &out, nil
}

func (c *client) getTeeTimes(ctx context.Context, token string, date time.Time) ([]TeeTimeResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v2/courses/%s/teetimes?searchDate=%s&siteId=%s",
		c.cfg.BaseURL, c.cfg.CourseID, date.Format("2006-01-02"), c.cfg.SiteID)
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
	endpoint := fmt.Sprintf("%s/api/v2/courses/%s/bookings", c.cfg.BaseURL, c.cfg.CourseID)
	body := map[string]any{
		"teeTimeId":   breq.ProviderTeeTimeID,
		"customerId":  breq.ProviderCustomerID,
		"playerCount": breq.Slots,
		"holes":       breq.Holes,
		"siteId":      c.cfg.SiteID,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return nil, err
	}
	var out BookingResponse
	if err := c.send(req, "createBooking", breq.UserID, &out); err != nil {
		return nil, err
	}
	if out.BookingID.String() == "" {
		return nil, fmt.Errorf("clubprophet: create booking returned no id")
	}
	return &out, nil
}

func (c *client) deleteBooking(ctx context.Context, token, bookingID string) error {
	endpoint := fmt.Sprintf("%s/api/v2/courses/%s/bookings/%s",
		c.cfg.BaseURL, c.cfg.CourseID, url.PathEscape(bookingID))
	req, err := c.jsonRequest(ctx, http.MethodDelete, endpoint, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, "deleteBooking", "", nil)
}

func (c *client) searchCustomer(ctx context.Context, token, email string) (*CustomerResponse, error) {
	endpoint := fmt.Sprintf("%s/api/v2/customers/search?email=%s", c.cfg.BaseURL, url.QueryEscape(email))
	req, err := c.jsonRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out customerSearchResponse
	if err := c.send(req, "getCustomer", "", &out); err != nil {
		return nil, err
	}
	if len(out.Customers) == 0 {
		return nil, nil
	}
	return &out.Customers[0], nil
}

func (c *client) createCustomer(ctx context.Context, token string, cust provider.Customer) (string, error) {
	body := map[string]any{
		"firstName":   cust.FirstName,
		"lastName":    cust.LastName,
		"email":       cust.Email,
		"phoneNumber": cust.Phone,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v2/customers", token, body)
	if err != nil {
		return "", err
	}
	var out CustomerResponse
	if err := c.send(req, "createCustomer", "", &out); err != nil {
		return "", err
	}
	id := out.CustomerID.String()
	if id == "" {
		return "", fmt.Errorf("clubprophet: create customer returned no id")
	}
	return id, nil
}

func (c *client) jsonRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("clubprophet: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("clubprophet: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-componentid", c.cfg.ComponentID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *client) send(req *http.Request, operation, userID string, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return fmt.Errorf("clubprophet: throttle wait: %w", err)
		}
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(provider.ClubProphet, operation, "transport_error", time.Since(started).Seconds())
		return fmt.Errorf("clubprophet: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(provider.ClubProphet, operation, "read_error", time.Since(started).Seconds())
		return fmt.Errorf("clubprophet: read %s response: %w", operation, err)
	}
	c.metrics.ObserveRequest(provider.ClubProphet, operation, strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &provider.HTTPError{
			Provider: provider.ClubProphet,
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
		return fmt.Errorf("clubprophet: decode %s response: %w", operation, err)
	}
	return nil
}
