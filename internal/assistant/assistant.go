package assistant

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// ResponseKind tells the presentation layer how to render a Response.
type ResponseKind string

const (
	KindEmailPreview ResponseKind = "email_preview"
	KindEmails       ResponseKind = "emails"
	KindAI           ResponseKind = "ai"
	KindInfo         ResponseKind = "info"
	KindError        ResponseKind = "error"
)

// DefaultMaxUnread is how many unread messages a read request lists.
const DefaultMaxUnread = 5

// Response is the typed outcome of one turn.
type Response struct {
	Kind      ResponseKind         `json:"kind"`
	Message   string               `json:"message,omitempty"`
	Draft     *EmailDraft          `json:"draft,omitempty"`
	Emails    []UnreadEmailSummary `json:"emails,omitempty"`
	MessageID string               `json:"message_id,omitempty"`
}

// Assistant routes user turns to the generator, the mail gateway or the oracle.
// It holds no conversation state of its own and is safe for concurrent use
// when its collaborators are.
type Assistant struct {
	classifier Classifier
	generator  *Generator
	oracle     Oracle
	gateway    MailGateway
	maxUnread  int64
	log        zerolog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithClassifier replaces the keyword classifier.
func WithClassifier(c Classifier) Option {
	return func(a *Assistant) { a.classifier = c }
}

// WithMaxUnread sets how many unread messages a read request lists.
func WithMaxUnread(n int64) Option {
	return func(a *Assistant) {
		if n > 0 {
			a.maxUnread = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Assistant) { a.log = l }
}

// New creates an Assistant.
func New(oracle Oracle, gateway MailGateway, opts ...Option) *Assistant {
	a := &Assistant{
		classifier: KeywordClassifier{},
		generator:  NewGenerator(oracle),
		oracle:     oracle,
		gateway:    gateway,
		maxUnread:  DefaultMaxUnread,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HandleTurn processes one user message and returns the next state with the response.
func (a *Assistant) HandleTurn(ctx context.Context, state ConversationState, text string) (ConversationState, Response) {
	state = state.Normalize()
	intent := a.classifier.Classify(text, state.Mode)

	log := a.log.With().Str("intent", intent.String()).Str("mode", string(state.Mode)).Logger()
	log.Debug().Msg("turn classified")

	switch {
	case intent == IntentComposeEmail && state.Mode == ModeIdle:
		return a.compose(ctx, log, state, text)
	case intent == IntentModifyPendingEmail && state.Mode == ModeAwaitingApproval:
		return a.modify(ctx, log, state, text)
	case intent == IntentReadEmail:
		return state, a.readUnread(ctx, log)
	default:
		return a.chat(ctx, log, state, text)
	}
}

// ConfirmSend sends the pending draft. The draft is cleared whatever the
// gateway outcome.
func (a *Assistant) ConfirmSend(ctx context.Context, state ConversationState) (ConversationState, Response) {
	state = state.Normalize()
	if state.Pending == nil {
		return state, Response{Kind: KindError, Message: "No pending email to send."}
	}

	draft := *state.Pending
	next := state.withoutDraft()

	id, err := a.gateway.Send(ctx, draft.To, draft.Subject, draft.Body)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrSendFailed, err)
		a.log.Error().Err(err).Str("to", draft.To).Msg("send failed")
		return next, Response{Kind: KindError, Message: userMessage(err)}
	}

	a.log.Info().Str("to", draft.To).Str("message_id", id).Msg("email sent")

	return next, Response{
		Kind:      KindInfo,
		Message:   fmt.Sprintf("Email sent successfully to %s (id %s).", draft.To, id),
		MessageID: id,
	}
}

// CancelDraft drops the pending draft. It is a no-op when nothing is pending.
func (a *Assistant) CancelDraft(state ConversationState) (ConversationState, Response) {
	state = state.Normalize()
	if state.Pending == nil {
		return state, Response{Kind: KindInfo, Message: "There is no pending email."}
	}

	a.log.Info().Str("to", state.Pending.To).Msg("draft cancelled")
	return state.withoutDraft(), Response{Kind: KindInfo, Message: "Email cancelled."}
}

func (a *Assistant) compose(ctx context.Context, log zerolog.Logger, state ConversationState, text string) (ConversationState, Response) {
	draft, err := a.generator.Generate(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("draft generation failed")
		return state, Response{Kind: KindError, Message: userMessage(err)}
	}

	return state.withDraft(draft), Response{Kind: KindEmailPreview, Draft: &draft}
}

func (a *Assistant) modify(ctx context.Context, log zerolog.Logger, state ConversationState, text string) (ConversationState, Response) {
	draft, err := a.generator.Regenerate(ctx, *state.Pending, text)
	if err != nil {
		log.Warn().Err(err).Msg("draft regeneration failed")
		return state, Response{Kind: KindError, Message: userMessage(err)}
	}

	return state.withDraft(draft), Response{Kind: KindEmailPreview, Draft: &draft}
}

func (a *Assistant) readUnread(ctx context.Context, log zerolog.Logger) Response {
	emails, err := a.gateway.ListUnread(ctx, a.maxUnread)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrReadFailed, err)
		log.Error().Err(err).Msg("list unread failed")
		return Response{Kind: KindError, Message: userMessage(err)}
	}

	if len(emails) == 0 {
		return Response{Kind: KindInfo, Message: "No unread emails found."}
	}

	return Response{Kind: KindEmails, Emails: emails}
}

// chat records the user turn before calling the oracle, so a failed call
// still leaves the question in the history.
func (a *Assistant) chat(ctx context.Context, log zerolog.Logger, state ConversationState, text string) (ConversationState, Response) {
	state = state.withTurn(RoleUser, text)

	reply, err := a.oracle.Complete(ctx, state.History)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
		log.Error().Err(err).Msg("chat completion failed")
		return state, Response{Kind: KindError, Message: userMessage(err)}
	}

	return state.withTurn(RoleAssistant, reply), Response{Kind: KindAI, Message: reply}
}
