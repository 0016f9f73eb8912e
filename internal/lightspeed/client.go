package lightspeed

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

// client speaks Lightspeed Golf's JSON:API.
type client struct {
	cfg        *Config
	httpClient *http.Client
	logger     *logging.Logger
	errorLog   *errlog.Recorder
	metrics    *metrics.ProviderMetrics
}

// refreshToken runs the OAuth refresh grant. Lightspeed rotates the refresh
// token on every exchange; callers must persist the one returned here.
func (c *client) refreshToken(ctx context.Context, currentRefresh string) (*oauthTokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", currentRefresh)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("lightspeed: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var out oauthTokenResponse
	if err := c.send(req, "refreshToken", "", &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("lightspeed: token refresh returned empty access token")
	}
	return &out, nil
}

func (c *client) getTeeTimes(ctx context.Context, token, courseID string, date time.Time) ([]TeeTimeResource, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/teetimes?date=%s&course_id=%s",
		c.cfg.BaseURL, c.cfg.ClubID, date.Format("2006-01-02"), url.QueryEscape(courseID))
	req, err := c.jsonAPIRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out jsonAPIDocument[TeeTimeAttributes]
	if err := c.send(req, "getTeeTimes", "", &out); err != nil {
		return nil, err
	}
	if len(out.Errors) > 0 {
		return nil, fmt.Errorf("lightspeed: availability error: %s", out.Errors[0].Detail)
	}
	return out.Data, nil
}

func (c *client) createReservationRequest(ctx context.Context, token string, breq provider.BookingRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/reservation-requests", c.cfg.BaseURL, c.cfg.ClubID)
	body := map[string]any{
		"data": map[string]any{
			"type": "reservation-request",
			"attributes": reservationRequestAttributes{
				TeeTimeID:  breq.ProviderTeeTimeID,
				CustomerID: breq.ProviderCustomerID,
				Holes:      breq.Holes,
			},
		},
	}
	req, err := c.jsonAPIRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return "", err
	}
	var out jsonAPISingle[reservationRequestAttributes]
	if err := c.send(req, "createReservationRequest", breq.UserID, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("lightspeed: reservation request returned no id")
	}
	return out.Data.ID, nil
}

func (c *client) createRoundRequest(ctx context.Context, token, reservationRequestID string, position int) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/round-requests", c.cfg.BaseURL, c.cfg.ClubID)
	body := map[string]any{
		"data": map[string]any{
			"type": "round-request",
			"attributes": roundRequestAttributes{
				ReservationRequestID: reservationRequestID,
				Position:             position,
			},
		},
	}
	req, err := c.jsonAPIRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return "", err
	}
	var out jsonAPISingle[roundRequestAttributes]
	if err := c.send(req, "createRoundRequest", "", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("lightspeed: round request returned no id")
	}
	return out.Data.ID, nil
}

func (c *client) confirmReservation(ctx context.Context, token, reservationRequestID string) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/reservation-requests/%s/confirm",
		c.cfg.BaseURL, c.cfg.ClubID, url.PathEscape(reservationRequestID))
	req, err := c.jsonAPIRequest(ctx, http.MethodPut, endpoint, token, nil)
	if err != nil {
		return "", err
	}
	var out jsonAPISingle[reservationAttributes]
	if err := c.send(req, "confirmReservation", "", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("lightspeed: confirm returned no reservation id")
	}
	return out.Data.ID, nil
}

func (c *client) deleteReservation(ctx context.Context, token, reservationID string) error {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/reservations/%s",
		c.cfg.BaseURL, c.cfg.ClubID, url.PathEscape(reservationID))
	req, err := c.jsonAPIRequest(ctx, http.MethodDelete, endpoint, token, nil)
	if err != nil {
		return err
	}
	return c.send(req, "deleteBooking", "", nil)
}

func (c *client) findCustomer(ctx context.Context, token, email string) (*CustomerResource, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/customers?filter[email]=%s",
		c.cfg.BaseURL, c.cfg.ClubID, url.QueryEscape(email))
	req, err := c.jsonAPIRequest(ctx, http.MethodGet, endpoint, token, nil)
	if err != nil {
		return nil, err
	}
	var out jsonAPIDocument[CustomerAttributes]
	if err := c.send(req, "getCustomer", "", &out); err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &out.Data[0], nil
}

func (c *client) createCustomer(ctx context.Context, token string, cust provider.Customer) (string, error) {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/customers", c.cfg.BaseURL, c.cfg.ClubID)
	body := map[string]any{
		"data": map[string]any{
			"type": "customer",
			"attributes": CustomerAttributes{
				FirstName: cust.FirstName,
				LastName:  cust.LastName,
				Email:     cust.Email,
				Phone:     cust.Phone,
			},
		},
	}
	req, err := c.jsonAPIRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return "", err
	}
	var out jsonAPISingle[CustomerAttributes]
	if err := c.send(req, "createCustomer", "", &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("lightspeed: create customer returned no id")
	}
	return out.Data.ID, nil
}

func (c *client) confirmPayment(ctx context.Context, token string, data *provider.SalesData) error {
	endpoint := fmt.Sprintf("%s/api/v2/clubs/%s/payments", c.cfg.BaseURL, c.cfg.ClubID)
	body := map[string]any{
		"data": map[string]any{
			"type": "payment",
			"attributes": map[string]any{
				"round_ids":         data.RoundIDs,
				"payment_method_id": c.cfg.PaymentMethodID,
				"amount":            float64(data.AmountCents) / 100,
			},
		},
	}
	req, err := c.jsonAPIRequest(ctx, http.MethodPost, endpoint, token, body)
	if err != nil {
		return err
	}
	return c.send(req, "confirmPayment", "", nil)
}

func (c *client) jsonAPIRequest(ctx context.Context, method, endpoint, token string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("lightspeed: marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("lightspeed: create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.api+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/vnd.api+json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *client) send(req *http.Request, operation, userID string, out any) error {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(provider.Lightspeed, operation, "transport_error", time.Since(started).Seconds())
		return fmt.Errorf("lightspeed: %s: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveRequest(provider.Lightspeed, operation, "read_error", time.Since(started).Seconds())
		return fmt.Errorf("lightspeed: read %s response: %w", operation, err)
	}
	c.metrics.ObserveRequest(provider.Lightspeed, operation, strconv.Itoa(resp.StatusCode), time.Since(started).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		httpErr := &provider.HTTPError{
			Provider: provider.Lightspeed,
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
		return fmt.Errorf("lightspeed: decode %s response: %w", operation, err)
	}
	return nil
}
