// Package notify implements the outbound notification gateways for
// PeerCall Hub. It wraps the Twilio SMS API and the SendGrid mail API
// behind a single notification.Notifier service with retries and
// circuit breaking.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TWILIO CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// TwilioConfig contains configuration for the Twilio SMS client.
type TwilioConfig struct {
	// AccountSID is the Twilio account identifier.
	AccountSID string

	// AuthToken is the Twilio API auth token.
	AuthToken string

	// FromNumber is the E.164 number messages are sent from.
	FromNumber string

	// BaseURL is the Twilio API base URL (default: https://api.twilio.com).
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// DefaultTwilioConfig returns sensible defaults.
func DefaultTwilioConfig(accountSID, authToken, fromNumber string) TwilioConfig {
	return TwilioConfig{
		AccountSID: accountSID,
		AuthToken:  authToken,
		FromNumber: fromNumber,
		BaseURL:    "https://api.twilio.com",
		Timeout:    10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TWILIO CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// TwilioClient sends SMS messages through the Twilio REST API.
type TwilioClient struct {
	config     TwilioConfig
	httpClient *http.Client
}

// NewTwilioClient creates a new Twilio client.
func NewTwilioClient(config TwilioConfig) *TwilioClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.twilio.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &TwilioClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// twilioErrorResponse is the error payload returned by the Twilio API.
type twilioErrorResponse struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// SendSMS sends a text message to the given E.164 number.
func (c *TwilioClient) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient number", shared.ErrSMSGatewayFailed)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		c.config.BaseURL, c.config.AccountSID)

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.config.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.SetBasicAuth(c.config.AccountSID, c.config.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrSMSGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &GatewayError{
		Gateway:    "twilio",
		StatusCode: resp.StatusCode,
	}

	var payload twilioErrorResponse
	if json.Unmarshal(respBody, &payload) == nil && payload.Message != "" {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(respBody))
	}

	return fmt.Errorf("%w: %w", shared.ErrSMSGatewayFailed, apiErr)
}

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY ERRORS
// ══════════════════════════════════════════════════════════════════════════════

// GatewayError represents an HTTP-level error from an external gateway.
type GatewayError struct {
	Gateway    string
	StatusCode int
	Code       int
	Message    string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s api error %d (code %d): %s", e.Gateway, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s api error %d: %s", e.Gateway, e.StatusCode, e.Message)
}

// IsRetryableGatewayError reports whether a delivery attempt is worth
// repeating. Rate limits and server errors are transient, other client
// errors (bad number, bad payload) are permanent.
func IsRetryableGatewayError(err error) bool {
	if err == nil {
		return false
	}

	var gatewayErr *GatewayError
	if errors.As(err, &gatewayErr) {
		return gatewayErr.StatusCode == http.StatusTooManyRequests ||
			gatewayErr.StatusCode >= 500
	}

	// Network-level failures have no structured response and are retried.
	return true
}
