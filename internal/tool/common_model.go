package tool

import (
	"time"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

// Draft is an email awaiting approval.
type Draft struct {
	To      string `json:"to" jsonschema:"recipient email address"`
	Subject string `json:"subject" jsonschema:"email subject"`
	Body    string `json:"body" jsonschema:"email body"`
}

// UnreadEmail is a summary of an unread inbox message.
type UnreadEmail struct {
	From    string `json:"from" jsonschema:"sender"`
	Subject string `json:"subject" jsonschema:"email subject"`
	Snippet string `json:"snippet" jsonschema:"message preview"`
}

// TurnResult is the outcome of one assistant turn.
type TurnResult struct {
	SessionID string        `json:"session_id" jsonschema:"conversation session ID"`
	Kind      string        `json:"kind" jsonschema:"one of email_preview, emails, ai, info, error"`
	Message   string        `json:"message,omitempty" jsonschema:"assistant reply or status message"`
	Draft     *Draft        `json:"draft,omitempty" jsonschema:"draft awaiting approval"`
	Emails    []UnreadEmail `json:"emails,omitempty" jsonschema:"unread emails, now marked as read"`
	MessageID string        `json:"message_id,omitempty" jsonschema:"Gmail ID of the sent message"`
	Text      string        `json:"text" jsonschema:"plain text rendering of the result"`
}

const timestampLayout = time.RFC3339

func newTurnResult(sessionID string, r assistant.Response) TurnResult {
	res := TurnResult{
		SessionID: sessionID,
		Kind:      string(r.Kind),
		Message:   r.Message,
		Draft:     toDraft(r.Draft),
		MessageID: r.MessageID,
		Text:      r.Text(),
	}

	for _, e := range r.Emails {
		res.Emails = append(res.Emails, UnreadEmail{From: e.Sender, Subject: e.Subject, Snippet: e.Snippet})
	}

	return res
}

func toDraft(d *assistant.EmailDraft) *Draft {
	if d == nil {
		return nil
	}
	return &Draft{To: d.To, Subject: d.Subject, Body: d.Body}
}
