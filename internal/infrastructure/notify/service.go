package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peercall/peercall-hub/config"
	"github.com/peercall/peercall-hub/internal/domain/matching"
	"github.com/peercall/peercall-hub/internal/domain/notification"
	"github.com/peercall/peercall-hub/internal/domain/shared"
	"github.com/peercall/peercall-hub/pkg/circuitbreaker"
	"github.com/peercall/peercall-hub/pkg/logger"
	"github.com/peercall/peercall-hub/pkg/retry"
	"github.com/peercall/peercall-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GATEWAY INTERFACES
// ══════════════════════════════════════════════════════════════════════════════

// SMSSender sends a text message to an E.164 number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// EmailSender sends a message with plain-text and HTML bodies.
type EmailSender interface {
	SendEmail(ctx context.Context, to, toName, subject, plainBody, htmlBody string) error
}

// ══════════════════════════════════════════════════════════════════════════════
// NOTIFICATION SERVICE
// ══════════════════════════════════════════════════════════════════════════════

// Service delivers match lifecycle notifications to both participants
// over the channels each of them can receive. Implements
// notification.Notifier.
type Service struct {
	sms     SMSSender
	email   EmailSender
	flags   *config.FeatureFlags
	baseURL string
	log     *logger.Logger

	smsRetrier   *retry.Retrier
	emailRetrier *retry.Retrier
	smsBreaker   *circuitbreaker.CircuitBreaker
	emailBreaker *circuitbreaker.CircuitBreaker
}

// ServiceParams contains dependencies for creating a Service.
type ServiceParams struct {
	SMS     SMSSender
	Email   EmailSender
	Flags   *config.FeatureFlags
	BaseURL string
	Logger  *logger.Logger
}

// NewService creates a new notification Service.
func NewService(params ServiceParams) *Service {
	log := params.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With(logger.Component("notify"))

	onStateChange := func(name string, from, to circuitbreaker.State) {
		log.Warn("gateway circuit state changed",
			logger.String("gateway", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
	}

	return &Service{
		sms:          params.SMS,
		email:        params.Email,
		flags:        params.Flags,
		baseURL:      strings.TrimRight(params.BaseURL, "/"),
		log:          log,
		smsRetrier:   retry.SMSRetrier(),
		emailRetrier: retry.EmailRetrier(),
		smsBreaker:   circuitbreaker.SMSGatewayBreaker(onStateChange),
		emailBreaker: circuitbreaker.EmailGatewayBreaker(onStateChange),
	}
}

// Notify delivers the event to both participants of the match.
// A failure on one channel never blocks the others; the joined error
// of all failed deliveries is returned so callers can log it.
func (s *Service) Notify(ctx context.Context, event notification.Event, match matching.Match) error {
	if !event.IsValid() {
		return fmt.Errorf("%w: %q", shared.ErrInvalidEvent, event)
	}

	var failures []error

	for _, recipient := range []matching.User{match.Participants.First, match.Participants.Second} {
		other, ok := match.Participants.Other(recipient.ID)
		if !ok {
			continue
		}

		msg := s.buildMessage(event, match, recipient, other)
		if err := s.deliver(ctx, event, recipient, msg); err != nil {
			failures = append(failures, err)
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", shared.ErrNotificationFailed, errors.Join(failures...))
	}

	return nil
}

// deliver sends the message over every channel the recipient can receive.
// Delivering over at least one channel counts as success.
func (s *Service) deliver(ctx context.Context, event notification.Event, recipient matching.User, msg message) error {
	log := s.log.With(
		logger.UserID(recipient.ID.String()),
		logger.Event(event.String()),
	)

	attempted := 0
	var failures []error

	if s.smsEnabled(recipient) {
		attempted++
		if err := s.sendSMS(ctx, recipient, msg); err != nil {
			log.Warn("sms delivery failed", logger.Err(err))
			failures = append(failures, err)
		} else {
			log.Info("sms delivered", logger.Channel(notification.ChannelTypeSMS.String()))
		}
	}

	if s.emailEnabled(recipient) {
		attempted++
		if err := s.sendEmail(ctx, recipient, msg); err != nil {
			log.Warn("email delivery failed", logger.Err(err))
			failures = append(failures, err)
		} else {
			log.Info("email delivered", logger.Channel(notification.ChannelTypeEmail.String()))
		}
	}

	if attempted == 0 {
		log.Debug("no notification channel available for user")
		return nil
	}

	if len(failures) == attempted {
		return errors.Join(failures...)
	}

	return nil
}

func (s *Service) smsEnabled(recipient matching.User) bool {
	return s.sms != nil &&
		recipient.Phone != "" &&
		s.flags.IsEnabled(config.FeatureNotifySMS, config.FeatureContext{UserID: recipient.ID.String()})
}

func (s *Service) emailEnabled(recipient matching.User) bool {
	return s.email != nil &&
		recipient.Email != "" &&
		s.flags.IsEnabled(config.FeatureNotifyEmail, config.FeatureContext{UserID: recipient.ID.String()})
}

// sendSMS pushes the message through the retrier and circuit breaker.
func (s *Service) sendSMS(ctx context.Context, recipient matching.User, msg message) error {
	return s.smsRetrier.Do(ctx, func(ctx context.Context) error {
		err := s.smsBreaker.Execute(ctx, func(ctx context.Context) error {
			return s.sms.SendSMS(ctx, recipient.Phone, msg.SMS)
		})
		if err != nil && !IsRetryableGatewayError(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

func (s *Service) sendEmail(ctx context.Context, recipient matching.User, msg message) error {
	return s.emailRetrier.Do(ctx, func(ctx context.Context) error {
		err := s.emailBreaker.Execute(ctx, func(ctx context.Context) error {
			return s.email.SendEmail(ctx, recipient.Email, recipient.Name,
				msg.Subject, msg.Plain, msg.HTML)
		})
		if err != nil && !IsRetryableGatewayError(err) {
			return retry.Permanent(err)
		}
		return err
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE TEMPLATES
// ══════════════════════════════════════════════════════════════════════════════

// message is a rendered notification ready for delivery.
type message struct {
	Subject string
	Plain   string
	HTML    string
	SMS     string
}

const (
	subjectNewMatch  = "You have a new PeerCall match"
	subjectConfirmed = "Your PeerCall is confirmed"
	subjectCanceled  = "Your PeerCall was canceled"
	subjectPostMatch = "How was your PeerCall?"

	bodyNewMatch = `Hi {{recipientName}},

You've been matched with {{matchName}} for a call on {{scheduleDate}} at {{scheduleTime}}.

Confirm: {{confirmLink}}
Can't make it? {{declineLink}}`

	bodyConfirmed = `Hi {{recipientName}},

Your call with {{matchName}} on {{scheduleDate}} at {{scheduleTime}} is confirmed.

Join here: {{callLink}}`

	bodyCanceled = `Hi {{recipientName}},

Your call with {{matchName}} scheduled for {{scheduleDate}} at {{scheduleTime}} has been canceled. You'll be included in the next matching round.`

	bodyPostMatch = `Hi {{recipientName}},

How did your call with {{matchName}} go? We'd love to hear about it, and you'll be matched again in the next round.`

	smsNewMatch  = `PeerCall: you're matched with {{matchName}} on {{scheduleDate}} at {{scheduleTime}}. Confirm: {{confirmLink}}`
	smsConfirmed = `PeerCall: your call with {{matchName}} on {{scheduleDate}} at {{scheduleTime}} is confirmed. Join: {{callLink}}`
	smsCanceled  = `PeerCall: your call with {{matchName}} on {{scheduleDate}} was canceled.`
	smsPostMatch = `PeerCall: how did your call with {{matchName}} go?`
)

// buildMessage renders the templates for one recipient.
func (s *Service) buildMessage(event notification.Event, match matching.Match, recipient, other matching.User) message {
	replacer := strings.NewReplacer(
		"{{recipientName}}", recipient.Name,
		"{{matchName}}", other.Name,
		"{{scheduleDate}}", timeutil.FormatScheduleDate(match.Schedule),
		"{{scheduleTime}}", timeutil.FormatScheduleTime(match.Schedule),
		"{{confirmLink}}", s.actionLink(match.ID, recipient.ID, "confirm"),
		"{{declineLink}}", s.actionLink(match.ID, recipient.ID, "decline"),
		"{{callLink}}", match.Link,
	)

	var subject, body, sms string
	switch event {
	case notification.EventNewMatch:
		subject, body, sms = subjectNewMatch, bodyNewMatch, smsNewMatch
	case notification.EventConfirmed:
		subject, body, sms = subjectConfirmed, bodyConfirmed, smsConfirmed
	case notification.EventCanceled:
		subject, body, sms = subjectCanceled, bodyCanceled, smsCanceled
	case notification.EventPostMatch:
		subject, body, sms = subjectPostMatch, bodyPostMatch, smsPostMatch
	}

	plain := replacer.Replace(body)

	return message{
		Subject: subject,
		Plain:   plain,
		HTML:    renderHTML(plain),
		SMS:     replacer.Replace(sms),
	}
}

// actionLink builds the one-click confirm or decline URL.
func (s *Service) actionLink(matchID matching.MatchID, userID matching.UserID, action string) string {
	return fmt.Sprintf("%s/match/%s/%s/%s", s.baseURL, matchID.String(), action, userID.String())
}

// renderHTML wraps the plain-text body in minimal markup, turning
// paragraph breaks into <p> tags.
func renderHTML(plain string) string {
	paragraphs := strings.Split(plain, "\n\n")
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, p := range paragraphs {
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(p, "\n", "<br>"))
		b.WriteString("</p>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
