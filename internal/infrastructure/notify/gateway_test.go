package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/peercall/peercall-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwilioClientSendsFormEncodedRequest(t *testing.T) {
	var captured *http.Request
	var capturedBody string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		body, _ := io.ReadAll(r.Body)
		capturedBody = string(body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM123","status":"queued"}`))
	}))
	defer server.Close()

	cfg := DefaultTwilioConfig("AC123", "token", "+15550009999")
	cfg.BaseURL = server.URL
	client := NewTwilioClient(cfg)

	err := client.SendSMS(context.Background(), "+15550000001", "hello there")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", captured.URL.Path)
	assert.Equal(t, "application/x-www-form-urlencoded", captured.Header.Get("Content-Type"))

	user, pass, ok := captured.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "AC123", user)
	assert.Equal(t, "token", pass)

	assert.Contains(t, capturedBody, "To=%2B15550000001")
	assert.Contains(t, capturedBody, "From=%2B15550009999")
	assert.Contains(t, capturedBody, "Body=hello+there")
}

func TestTwilioClientParsesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"Invalid 'To' phone number","status":400}`))
	}))
	defer server.Close()

	cfg := DefaultTwilioConfig("AC123", "token", "+15550009999")
	cfg.BaseURL = server.URL
	client := NewTwilioClient(cfg)

	err := client.SendSMS(context.Background(), "bogus", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrSMSGatewayFailed)

	var gatewayErr *GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, http.StatusBadRequest, gatewayErr.StatusCode)
	assert.Equal(t, 21211, gatewayErr.Code)
	assert.False(t, IsRetryableGatewayError(err))
}

func TestTwilioClientRejectsEmptyRecipient(t *testing.T) {
	client := NewTwilioClient(DefaultTwilioConfig("AC123", "token", "+15550009999"))

	err := client.SendSMS(context.Background(), "", "hi")
	assert.ErrorIs(t, err, shared.ErrSMSGatewayFailed)
}

func TestSendGridClientSendsMailRequest(t *testing.T) {
	var captured *http.Request
	var payload sendGridMailRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := DefaultSendGridConfig("sg-key", "hello@peercall.org", "PeerCall Hub")
	cfg.BaseURL = server.URL
	client := NewSendGridClient(cfg)

	err := client.SendEmail(context.Background(),
		"alice@example.com", "Alice", "Subject line", "plain body", "<p>html body</p>")
	require.NoError(t, err)

	require.NotNil(t, captured)
	assert.Equal(t, "/v3/mail/send", captured.URL.Path)
	assert.Equal(t, "Bearer sg-key", captured.Header.Get("Authorization"))

	require.Len(t, payload.Personalizations, 1)
	require.Len(t, payload.Personalizations[0].To, 1)
	assert.Equal(t, "alice@example.com", payload.Personalizations[0].To[0].Email)
	assert.Equal(t, "hello@peercall.org", payload.From.Email)
	assert.Equal(t, "Subject line", payload.Subject)

	// text/plain must come first, html second.
	require.Len(t, payload.Content, 2)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
	assert.Equal(t, "text/html", payload.Content[1].Type)
}

func TestSendGridClientParsesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"The provided authorization grant is invalid"}]}`))
	}))
	defer server.Close()

	cfg := DefaultSendGridConfig("bad-key", "hello@peercall.org", "PeerCall Hub")
	cfg.BaseURL = server.URL
	client := NewSendGridClient(cfg)

	err := client.SendEmail(context.Background(), "alice@example.com", "Alice", "s", "p", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrMailGatewayFailed)

	var gatewayErr *GatewayError
	require.True(t, errors.As(err, &gatewayErr))
	assert.Equal(t, "sendgrid", gatewayErr.Gateway)
	assert.Contains(t, gatewayErr.Message, "authorization grant is invalid")
}

func TestSendGridClientOmitsEmptyHTMLPart(t *testing.T) {
	var payload sendGridMailRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := DefaultSendGridConfig("sg-key", "hello@peercall.org", "PeerCall Hub")
	cfg.BaseURL = server.URL
	client := NewSendGridClient(cfg)

	err := client.SendEmail(context.Background(), "alice@example.com", "Alice", "s", "plain only", "")
	require.NoError(t, err)
	require.Len(t, payload.Content, 1)
	assert.Equal(t, "text/plain", payload.Content[0].Type)
}
