package notify

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/peercall/peercall-hub/config"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fakes
// ─────────────────────────────────────────────────────────────────────────────

type sentSMS struct {
	To   string
	Body string
}

type fakeSMSSender struct {
	sent []sentSMS
	err  error
}

func (f *fakeSMSSender) SendSMS(_ context.Context, to, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentSMS{To: to, Body: body})
	return nil
}

type sentEmail struct {
	To      string
	Subject string
	Plain   string
	HTML    string
}

type fakeEmailSender struct {
	sent []sentEmail
	err  error
}

func (f *fakeEmailSender) SendEmail(_ context.Context, to, _, subject, plain, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{To: to, Subject: subject, Plain: plain, HTML: html})
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

func testMatch(t *testing.T) matching.Match {
	t.Helper()

	alice, err := matching.NewUser(matching.NewUserParams{
		ID:    "u1",
		Name:  "Alice",
		Email: "alice@example.com",
		Phone: "+15550000001",
	})
	require.NoError(t, err)

	bob, err := matching.NewUser(matching.NewUserParams{
		ID:    "u2",
		Name:  "Bob",
		Email: "bob@example.com",
		Phone: "+15550000002",
	})
	require.NoError(t, err)

	pair, err := matching.NewUserPair(alice, bob)
	require.NoError(t, err)

	match, err := matching.NewMatch(matching.NewMatchParams{
		ID:           "m1",
		Participants: pair,
		Schedule:     time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC),
		CallNumber:   1,
		CreatedAt:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	match.Link = "https://meet.example.com/m1"
	return match
}

func newTestService(sms *fakeSMSSender, email *fakeEmailSender) *Service {
	return NewService(ServiceParams{
		SMS:     sms,
		Email:   email,
		Flags:   config.LoadFeatureFlags(),
		BaseURL: "https://hub.peercall.org",
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Tests
// ─────────────────────────────────────────────────────────────────────────────

func TestServiceNotifiesBothParticipantsOnBothChannels(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	svc := newTestService(sms, email)

	err := svc.Notify(context.Background(), notification.EventNewMatch, testMatch(t))
	require.NoError(t, err)

	require.Len(t, sms.sent, 2)
	require.Len(t, email.sent, 2)
	assert.Equal(t, "+15550000001", sms.sent[0].To)
	assert.Equal(t, "+15550000002", sms.sent[1].To)
	assert.Equal(t, "alice@example.com", email.sent[0].To)
	assert.Equal(t, "bob@example.com", email.sent[1].To)
}

func TestServiceRendersRecipientSpecificContent(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	svc := newTestService(sms, email)

	err := svc.Notify(context.Background(), notification.EventNewMatch, testMatch(t))
	require.NoError(t, err)

	// Alice's message names Bob and carries her own confirm link.
	aliceMail := email.sent[0]
	assert.Contains(t, aliceMail.Plain, "Hi Alice")
	assert.Contains(t, aliceMail.Plain, "matched with Bob")
	assert.Contains(t, aliceMail.Plain, "https://hub.peercall.org/match/m1/confirm/u1")
	assert.Contains(t, aliceMail.Plain, "https://hub.peercall.org/match/m1/decline/u1")
	assert.NotContains(t, aliceMail.Plain, "{{")
	assert.Contains(t, aliceMail.HTML, "<p>")

	bobMail := email.sent[1]
	assert.Contains(t, bobMail.Plain, "Hi Bob")
	assert.Contains(t, bobMail.Plain, "matched with Alice")
	assert.Contains(t, bobMail.Plain, "/match/m1/confirm/u2")
}

func TestServiceConfirmedEventIncludesCallLink(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	svc := newTestService(sms, email)

	err := svc.Notify(context.Background(), notification.EventConfirmed, testMatch(t))
	require.NoError(t, err)

	require.Len(t, email.sent, 2)
	assert.Contains(t, email.sent[0].Plain, "https://meet.example.com/m1")
	assert.Contains(t, sms.sent[0].Body, "https://meet.example.com/m1")
}

func TestServiceSucceedsWhenOneChannelFails(t *testing.T) {
	// Permanent gateway error so the retrier gives up immediately.
	sms := &fakeSMSSender{err: &GatewayError{Gateway: "twilio", StatusCode: http.StatusBadRequest}}
	email := &fakeEmailSender{}
	svc := newTestService(sms, email)

	err := svc.Notify(context.Background(), notification.EventNewMatch, testMatch(t))
	require.NoError(t, err)
	assert.Len(t, email.sent, 2)
}

func TestServiceFailsWhenAllChannelsFail(t *testing.T) {
	sms := &fakeSMSSender{err: &GatewayError{Gateway: "twilio", StatusCode: http.StatusBadRequest}}
	email := &fakeEmailSender{err: &GatewayError{Gateway: "sendgrid", StatusCode: http.StatusUnauthorized}}
	svc := newTestService(sms, email)

	err := svc.Notify(context.Background(), notification.EventNewMatch, testMatch(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrNotificationFailed)
}

func TestServiceSkipsUsersWithoutContactInfo(t *testing.T) {
	sms := &fakeSMSSender{}
	email := &fakeEmailSender{}
	svc := newTestService(sms, email)

	match := testMatch(t)
	match.Participants.First.Phone = ""
	match.Participants.First.Email = ""

	err := svc.Notify(context.Background(), notification.EventNewMatch, match)
	require.NoError(t, err)

	// Only the second participant is reachable.
	require.Len(t, sms.sent, 1)
	require.Len(t, email.sent, 1)
	assert.Equal(t, "+15550000002", sms.sent[0].To)
}

func TestServiceRejectsUnknownEvent(t *testing.T) {
	svc := newTestService(&fakeSMSSender{}, &fakeEmailSender{})

	err := svc.Notify(context.Background(), notification.Event("bogus"), testMatch(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrInvalidEvent)
}

func TestIsRetryableGatewayError(t *testing.T) {
	assert.True(t, IsRetryableGatewayError(&GatewayError{StatusCode: http.StatusTooManyRequests}))
	assert.True(t, IsRetryableGatewayError(&GatewayError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsRetryableGatewayError(&GatewayError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsRetryableGatewayError(nil))
}
