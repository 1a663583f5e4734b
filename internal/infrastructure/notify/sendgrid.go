package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/peercall/peercall-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SENDGRID CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// SendGridConfig contains configuration for the SendGrid mail client.
type SendGridConfig struct {
	// APIKey is the SendGrid API key.
	APIKey string

	// FromEmail is the sender address.
	FromEmail string

	// FromName is the display name of the sender.
	FromName string

	// BaseURL is the SendGrid API base URL (default: https://api.sendgrid.com).
	BaseURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration
}

// DefaultSendGridConfig returns sensible defaults.
func DefaultSendGridConfig(apiKey, fromEmail, fromName string) SendGridConfig {
	return SendGridConfig{
		APIKey:    apiKey,
		FromEmail: fromEmail,
		FromName:  fromName,
		BaseURL:   "https://api.sendgrid.com",
		Timeout:   10 * time.Second,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDGRID API TYPES
// ══════════════════════════════════════════════════════════════════════════════

type sendGridAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To []sendGridAddress `json:"to"`
}

type sendGridMailRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridAddress           `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
}

type sendGridErrorResponse struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SENDGRID CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// SendGridClient sends email through the SendGrid v3 mail API.
type SendGridClient struct {
	config     SendGridConfig
	httpClient *http.Client
}

// NewSendGridClient creates a new SendGrid client.
func NewSendGridClient(config SendGridConfig) *SendGridClient {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.sendgrid.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &SendGridClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// SendEmail sends a message with both plain-text and HTML bodies.
// SendGrid requires the text/plain part to come first.
func (c *SendGridClient) SendEmail(ctx context.Context, to, toName, subject, plainBody, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("%w: empty recipient address", shared.ErrMailGatewayFailed)
	}

	payload := sendGridMailRequest{
		Personalizations: []sendGridPersonalization{
			{To: []sendGridAddress{{Email: to, Name: toName}}},
		},
		From: sendGridAddress{
			Email: c.config.FromEmail,
			Name:  c.config.FromName,
		},
		Subject: subject,
		Content: []sendGridContent{
			{Type: "text/plain", Value: plainBody},
		},
	}
	if htmlBody != "" {
		payload.Content = append(payload.Content, sendGridContent{
			Type:  "text/html",
			Value: htmlBody,
		})
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/v3/mail/send", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrMailGatewayFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	apiErr := &GatewayError{
		Gateway:    "sendgrid",
		StatusCode: resp.StatusCode,
	}

	var payload2 sendGridErrorResponse
	if json.Unmarshal(respBody, &payload2) == nil && len(payload2.Errors) > 0 {
		messages := make([]string, 0, len(payload2.Errors))
		for _, e := range payload2.Errors {
			messages = append(messages, e.Message)
		}
		apiErr.Message = strings.Join(messages, "; ")
	} else {
		apiErr.Message = strings.TrimSpace(string(respBody))
	}

	return fmt.Errorf("%w: %w", shared.ErrMailGatewayFailed, apiErr)
}
