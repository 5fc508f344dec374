// Package gservice adapts the Gmail API to the assistant's mail gateway.
package gservice

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

const (
	gmailUserID = "me"

	labelInbox  = "INBOX"
	labelUnread = "UNREAD"

	defaultSender  = "Unknown"
	defaultSubject = "No Subject"
	defaultSnippet = "No Preview Available"

	defaultCallTimeout = 30 * time.Second
)

type tokenSource interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// GMail sends and lists messages of the authorized account.
type GMail struct {
	newSvc func(ctx context.Context) (*gmail.Service, error)
	cb     *gobreaker.CircuitBreaker
	log    zerolog.Logger
	now    func() time.Time
}

// NewGmail creates a gateway that authorizes every call with tok.
func NewGmail(tok tokenSource, log zerolog.Logger) *GMail {
	return newGmail(log, func(ctx context.Context) (*gmail.Service, error) {
		ts, err := tok.TokenSource(ctx)
		if err != nil {
			return nil, fmt.Errorf("tok.TokenSource failed: %w", err)
		}
		return gmail.NewService(ctx, option.WithTokenSource(ts))
	})
}

// NewGmailWithOptions creates a gateway from raw client options, e.g. a custom endpoint.
func NewGmailWithOptions(log zerolog.Logger, opts ...option.ClientOption) *GMail {
	return newGmail(log, func(ctx context.Context) (*gmail.Service, error) {
		return gmail.NewService(ctx, opts...)
	})
}

func newGmail(log zerolog.Logger, newSvc func(ctx context.Context) (*gmail.Service, error)) *GMail {
	log = log.With().Str("component", "gmail").Logger()

	settings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		IsSuccessful: func(err error) bool {
			var nce *nonCircuitError
			return err == nil || errors.As(err, &nce)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	}

	return &GMail{
		newSvc: newSvc,
		cb:     gobreaker.NewCircuitBreaker(settings),
		log:    log,
		now:    time.Now,
	}
}

// ListUnread returns up to maxResults unread inbox messages and marks each of them as read.
func (m *GMail) ListUnread(ctx context.Context, maxResults int64) ([]assistant.UnreadEmailSummary, error) {
	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	svc, err := m.newSvc(ctx)
	if err != nil {
		return nil, fmt.Errorf("newSvc failed: %w", err)
	}

	var list *gmail.ListMessagesResponse
	err = m.execute(func() error {
		list, err = svc.Users.Messages.List(gmailUserID).
			LabelIds(labelInbox, labelUnread).
			MaxResults(maxResults).
			Context(ctx).
			Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("messages.List failed: %w", err)
	}

	summaries := make([]assistant.UnreadEmailSummary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		var msg *gmail.Message
		err = m.execute(func() error {
			msg, err = svc.Users.Messages.Get(gmailUserID, ref.Id).
				Format("metadata").
				MetadataHeaders("From", "Subject").
				Context(ctx).
				Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("messages.Get failed: %w", err)
		}

		summaries = append(summaries, summarize(msg))
	}

	// Messages are marked read only once every summary is in hand.
	for _, ref := range list.Messages {
		m.markRead(ctx, svc, ref.Id)
	}

	m.log.Debug().Int("count", len(summaries)).Msg("unread messages listed")

	return summaries, nil
}

func (m *GMail) markRead(ctx context.Context, svc *gmail.Service, id string) {
	err := m.execute(func() error {
		_, err := svc.Users.Messages.Modify(gmailUserID, id, &gmail.ModifyMessageRequest{
			RemoveLabelIds: []string{labelUnread},
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		m.log.Warn().Err(err).Str("message_id", id).Msg("failed to mark message as read")
	}
}

// Send delivers a plain text message and returns the id Gmail assigned to it.
func (m *GMail) Send(ctx context.Context, to, subject, body string) (string, error) {
	raw, err := buildRaw(to, subject, body, m.now())
	if err != nil {
		return "", fmt.Errorf("buildRaw failed: %w", err)
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	svc, err := m.newSvc(ctx)
	if err != nil {
		return "", fmt.Errorf("newSvc failed: %w", err)
	}

	var sent *gmail.Message
	err = m.execute(func() error {
		sent, err = svc.Users.Messages.Send(gmailUserID, &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString(raw),
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", fmt.Errorf("messages.Send failed: %w", err)
	}

	m.log.Info().Str("message_id", sent.Id).Msg("message sent")

	return sent.Id, nil
}

func summarize(msg *gmail.Message) assistant.UnreadEmailSummary {
	s := assistant.UnreadEmailSummary{
		Sender:  defaultSender,
		Subject: defaultSubject,
		Snippet: defaultSnippet,
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "From":
				if h.Value != "" {
					s.Sender = h.Value
				}
			case "Subject":
				if h.Value != "" {
					s.Subject = h.Value
				}
			}
		}
	}

	if msg.Snippet != "" {
		s.Snippet = html.UnescapeString(msg.Snippet)
	}

	return s
}

func buildRaw(to, subject, body string, date time.Time) ([]byte, error) {
	addrs, err := mail.ParseAddressList(to)
	if err != nil {
		return nil, fmt.Errorf("mail.ParseAddressList failed: %w", err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("To", addrs)
	h.SetSubject(subject)
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("mail.CreateSingleInlineWriter failed: %w", err)
	}
	if _, err := io.WriteString(w, body); err != nil {
		return nil, fmt.Errorf("io.WriteString failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("w.Close failed: %w", err)
	}

	return buf.Bytes(), nil
}

// execute runs fn through the circuit breaker. Only server-side failures count
// against the breaker; client errors are returned unchanged.
func (m *GMail) execute(fn func() error) error {
	_, err := m.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case http.StatusInternalServerError, http.StatusBadGateway,
					http.StatusServiceUnavailable, http.StatusTooManyRequests:
					return nil, err
				default:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}

	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func (e *nonCircuitError) Unwrap() error {
	return e.err
}

func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultCallTimeout)
}
