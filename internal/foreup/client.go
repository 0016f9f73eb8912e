package foreup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/fairwaymarket/teesheet/internal/errlog"
	"github.com/fairwaymarket/teesheet/internal/observability/metrics"
	"github.com/fairwaymarket/teesheet/internal/provider"
	"github.com/fairwaymarket/teesheet/pkg/logging"
)

// client speaks ForeUp's booking REST API.
type client struct {
	cfg        *Config
	httpClient *http.Client
	logger     *logging.Logger
	errorLog   *errlog.Recorder
	metrics    *metrics.ProviderMetrics
}

// login exchanges course credentials for a JWT.
func (c *client) login(ctx context.Context) (string, error) {
	form := url.Values{}
	form.Set("username", c.cfg.Username)
	form.Set("password", c.cfg.Password)

	endpoint := c.cfg.BaseURL + "/api/booking/users/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("foreup: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out loginResponse
	if err := c.send(req, "login", "", &out); err != nil {
		return "", err
	}
	if out.JWT == "" {
		return "", fmt.Errorf("foreup: login returned empty jwt")
	}
	return out.JWT, nil
}

// getTeeTimes fetches one day of availability. ForeUp expects MM-DD-YYYY.
func (c *client) getTeeTimes(ctx context.Context, token, teeSheetID string, date time.Time) ([]TeeTimeResponse, error) {
	endpoint := fmt.Sprintf(
		"%s/api/booking/courses/%s/teesheets/%s/teetimes?date=%s&booking_class=%s&players=0",
		c.cfg.BaseURL, c.cfg.CourseID, teeSheetID, date.Format("01-02-2006"), c.cfg.BookingClass,
	)
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

func (c *client) createBooking(ctx context.Context, token, teeSheetID string, breq provider.BookingRequest) (*BookingResponse, error) {
	endpoint := fmt.Sprintf("%s/api/booking/courses/%s/teesheets/%s/reservations",
		c.cfg.BaseURL, c.cfg.CourseID, teeSheetID)
	body := map[string]any{
		"teetime_id":  breq.ProviderTeeTimeID,
		"customer_id": breq.ProviderCustomerID,
		"players":     breq.Slots,
		"holes":       breq.Holes,
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return nil, err
	}
	var out BookingResponse
	if err := c.send(req, "createBooking", breq.UserID, &out); err != nil {
		return nil, err
	}
	if out.ReservationID == "" {
		return nil, fmt.Errorf("foreup: create booking returned no reservation id")
	}
	return &out, nil
}

func (c *client) deleteBooking(ctx context.Context, token, teeSheetID, bookingID string) error {
	endpoint := fmt.Sprintf("%s/api/booking/courses/%s/teesheets/%s/reservations/%s",
		c.cfg.BaseURL, c.cfg.CourseID, teeSheetID, url.PathEscape(bookingID))
	req, err := c.jsonRequest(ctx, http.MethodDelete, endpoint, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, "deleteBooking", "", nil)
}

func (c *client) getCustomerByEmail(ctx context.Context, token, email string) (*CustomerResponse, error) {
	endpoint := fmt.Sprintf("%s/api/booking/courses/%s/customers?email=%s",
		c.cfg.BaseURL, c.cfg.CourseID, url.QueryEscape(email))
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
	endpoint := fmt.Sprintf("%s/api/booking/courses/%s/customers", c.cfg.BaseURL, c.cfg.CourseID)
	body := map[string]any{
		"first_name": cust.FirstName,
		"last_name":  cust.LastName,
		"email":      cust.Email,
		"phone":      cust.Phone,
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
		return "", fmt.Errorf("foreup: create customer returned no id")
	}
	return id, nil
}

// Sales submission is ForeUp's three-call sequence: open a cart, pay it,
// complete it.
func (c *client) createSalesCart(ctx context.Context, token string, data *provider.SalesData) (string, error) {
	endpoint := fmt.Sprintf("%s/api/sales/courses/%s/carts", c.cfg.BaseURL, c.cfg.CourseID)
	body := map[string]any{
		"reservation_id": data.ProviderBookingID,
		"items": []map[string]any{{
			"item_id":  data.SaleItemID,
			"quantity": data.Players,
			"price":    centsToDollars(data.AmountCents),
		}},
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return "", err
	}
	var out cartResponse
	if err := c.send(req, "createSalesCart", "", &out); err != nil {
		return "", err
	}
	if out.CartID == "" {
		return "", fmt.Errorf("foreup: sales cart returned no id")
	}
	return out.CartID, nil
}

func (c *client) paySalesCart(ctx context.Context, token, cartID string, amountCents int) error {
	endpoint := fmt.Sprintf("%s/api/sales/courses/%s/carts/%s/payment", c.cfg.BaseURL, c.cfg.CourseID, cartID)
	body := map[string]any{
		"type":   "credit_card",
		"amount": centsToDollars(amountCents),
	}
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return err
	}
	return c.send(req, "paySalesCart", "", nil)
}

func (c *client) completeSalesCart(ctx context.Context, token, cartID string) error {
	endpoint := fmt.Sprintf("%s/api/sales/courses/%s/carts/%s/complete", c.cfg.BaseURL, c.cfg.CourseID, cartID)
	req, err := c.jsonRequest(ctx, http.MethodPost, endpoint, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, "completeSalesCart", "", nil)
}

func (c *client) jsonRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("foreup: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("foreup: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Api-Key", "no_limits")
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// send executes the request, recording metrics and the failure audit entry on
// any non-2xx status before surfacing it.
func (c *client) send(req *http.Request, operation, userID string, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(provider.ForeUp, operation, "transport_error", time.Since(started).Seconds())
		return fmt.Errorf("foreup: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(provider.ForeUp, operation, "read_error", time.Since(started).Seconds())
		return fmt.Errorf("foreup: read %s response: %w", operation, err)
	}
	c.metrics.ObserveRequest(provider.ForeUp, operation, strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &provider.HTTPError{
			Provider: provider.ForeUp,
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
		return fmt.Errorf("foreup: decode %s response: %w", operation, err)
	}
	return nil
}

func centsToDollars(cents int) float64 {
	return float64(cents) / 100
}
