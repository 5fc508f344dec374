// Package assistant implements the email assistant core: intent classification,
// draft generation through a language model, and the draft approval state machine.
package assistant

import "context"

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry of the conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// EmailDraft is an unsent email awaiting approval.
type EmailDraft struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// UnreadEmailSummary is a read-only projection of an unread inbox message.
type UnreadEmailSummary struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Snippet string `json:"snippet"`
}

// Oracle is a hosted language model treated as a text completion service.
type Oracle interface {
	Complete(ctx context.Context, turns []Turn) (string, error)
}

// MailGateway sends messages and lists unread ones.
// ListUnread marks every returned message as read.
type MailGateway interface {
	Send(ctx context.Context, to, subject, body string) (string, error)
	ListUnread(ctx context.Context, maxResults int64) ([]UnreadEmailSummary, error)
}
