package waitlistsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the waitlist service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// AdminToken is sent as a bearer token on admin endpoints.
	AdminToken string
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Signup submits a waitlist signup. A nil error means the request was
// accepted; the outcome itself is never disclosed.
func (c *Client) Signup(ctx context.Context, req SignupRequest) error {
	resp, err := c.postJSON(ctx, "/v1/waitlist", req)
	if err != nil {
		return err
	}
	var out AcceptedResponse
	return decodeJSON(resp, &out, http.StatusAccepted)
}

// Resend asks for a new confirmation email.
func (c *Client) Resend(ctx context.Context, email string) error {
	resp, err := c.postJSON(ctx, "/v1/waitlist/resend", ResendRequest{Email: email})
	if err != nil {
		return err
	}
	var out AcceptedResponse
	return decodeJSON(resp, &out, http.StatusAccepted)
}

// Confirm follows a confirmation link. Every business outcome is returned as
// a ConfirmResponse status; only transport failures and server errors are
// errors.
func (c *Client) Confirm(ctx context.Context, token string) (*ConfirmResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/waitlist/confirm?token="+url.QueryEscape(token), nil, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
		var out ConfirmResponse
		if err := json.Unmarshal(body, &out); err == nil && out.Status != "" {
			return &out, nil
		}
	}
	return nil, parseErrorResponse(resp, body)
}

// Stats returns the waitlist counters. Requires AdminToken.
func (c *Client) Stats(ctx context.Context) (*StatsResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/admin/waitlist/stats", nil, map[string]string{
		"Authorization": "Bearer " + c.AdminToken,
	})
	if err != nil {
		return nil, err
	}

	var stats StatsResponse
	if err := decodeJSON(resp, &stats, http.StatusOK); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetLiveness checks if the service is alive.
func (c *Client) GetLiveness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/livez")
}

// GetReadiness checks if the service is ready.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	return c.health(ctx, "/readyz")
}

func (c *Client) health(ctx context.Context, path string) (*HealthResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}

	var health HealthResponse
	if err := decodeJSON(resp, &health, http.StatusOK); err != nil {
		return nil, err
	}
	return &health, nil
}

func (c *Client) postJSON(ctx context.Context, path string, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	return c.doRequest(ctx, http.MethodPost, path, bytes.NewReader(body), map[string]string{
		"Content-Type": "application/json",
	})
}

func (c *Client) doRequest(
	ctx context.Context,
	method, path string,
	body io.Reader,
	headers map[string]string,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

// decodeJSON decodes the body into target when the status matches, and
// returns an *APIError otherwise.
func decodeJSON(resp *http.Response, target any, expectedStatus int) error {
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != expectedStatus {
		return parseErrorResponse(resp, bodyBytes)
	}

	if err := json.Unmarshal(bodyBytes, target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
