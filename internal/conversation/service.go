// Package conversation runs assistant turns against stored per-session state.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
	"github.com/hal9000y/gmail-assistant/internal/chatlog"
	"github.com/hal9000y/gmail-assistant/internal/session"
)

var (
	// ErrEmptyMessage indicates a chat turn without text.
	ErrEmptyMessage = errors.New("empty message")
	// ErrSessionRequired indicates an operation that needs an existing session id.
	ErrSessionRequired = errors.New("session id required")
)

type turnHandler interface {
	HandleTurn(ctx context.Context, state assistant.ConversationState, text string) (assistant.ConversationState, assistant.Response)
	ConfirmSend(ctx context.Context, state assistant.ConversationState) (assistant.ConversationState, assistant.Response)
	CancelDraft(state assistant.ConversationState) (assistant.ConversationState, assistant.Response)
}

type chatLog interface {
	Append(ctx context.Context, sessionID string, role assistant.Role, content string) error
	Last(ctx context.Context, sessionID string, n int) ([]chatlog.Entry, error)
	Sessions(ctx context.Context, limit int) ([]chatlog.Session, error)
}

// Service serializes turns per session and keeps the log in sync.
// Different sessions proceed in parallel.
type Service struct {
	handler turnHandler
	store   session.Store
	chat    chatLog
	locks   *keyedMutex
	log     zerolog.Logger
	newID   func() string
}

// NewService creates a Service.
func NewService(handler turnHandler, store session.Store, chat chatLog, log zerolog.Logger) *Service {
	return &Service{
		handler: handler,
		store:   store,
		chat:    chat,
		locks:   newKeyedMutex(),
		log:     log.With().Str("component", "conversation").Logger(),
		newID:   uuid.NewString,
	}
}

// Chat handles one user message. An empty sessionID starts a new session;
// the id used is returned.
func (s *Service) Chat(ctx context.Context, sessionID, text string) (string, assistant.Response, error) {
	if strings.TrimSpace(text) == "" {
		return "", assistant.Response{}, ErrEmptyMessage
	}
	if sessionID == "" {
		sessionID = s.newID()
	}

	resp, err := s.withState(ctx, sessionID, func(state assistant.ConversationState) (assistant.ConversationState, assistant.Response) {
		return s.handler.HandleTurn(ctx, state, text)
	}, text)
	if err != nil {
		return "", assistant.Response{}, err
	}

	return sessionID, resp, nil
}

// ConfirmSend sends the pending draft of sessionID. The draft is removed from
// the store before the gateway is called, so a send happens at most once.
// Once the send has run its response is returned even if the final save fails.
func (s *Service) ConfirmSend(ctx context.Context, sessionID string) (assistant.Response, error) {
	if sessionID == "" {
		return assistant.Response{}, ErrSessionRequired
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	log := s.log.With().Str("session_id", sessionID).Logger()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return assistant.Response{}, fmt.Errorf("store.Load failed: %w", err)
	}

	if state.Pending != nil {
		claimed := state.Clone()
		claimed.Pending = nil
		if err := s.store.Save(ctx, sessionID, claimed.Normalize()); err != nil {
			return assistant.Response{}, fmt.Errorf("store.Save failed: %w", err)
		}
	}

	next, resp := s.handler.ConfirmSend(ctx, state)

	if err := s.store.Save(ctx, sessionID, next); err != nil {
		log.Error().Err(err).Str("message_id", resp.MessageID).Msg("failed to store state after send")
	}

	s.record(ctx, log, sessionID, "", resp, next)

	return resp, nil
}

// CancelDraft discards the pending draft of sessionID.
func (s *Service) CancelDraft(ctx context.Context, sessionID string) (assistant.Response, error) {
	if sessionID == "" {
		return assistant.Response{}, ErrSessionRequired
	}

	return s.withState(ctx, sessionID, func(state assistant.ConversationState) (assistant.ConversationState, assistant.Response) {
		return s.handler.CancelDraft(state)
	}, "")
}

// Pending returns the draft awaiting approval in sessionID, if any.
func (s *Service) Pending(ctx context.Context, sessionID string) (*assistant.EmailDraft, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("store.Load failed: %w", err)
	}

	return state.Pending, nil
}

// Reset forgets the state of sessionID, dropping any pending draft.
// The conversation log is kept.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrSessionRequired
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("store.Delete failed: %w", err)
	}

	s.log.Info().Str("session_id", sessionID).Msg("session reset")

	return nil
}

// History returns up to n logged messages of sessionID, oldest first.
func (s *Service) History(ctx context.Context, sessionID string, n int) ([]chatlog.Entry, error) {
	if sessionID == "" {
		return nil, ErrSessionRequired
	}

	entries, err := s.chat.Last(ctx, sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("chat.Last failed: %w", err)
	}

	return entries, nil
}

// Sessions lists logged sessions, most recently active first.
func (s *Service) Sessions(ctx context.Context, limit int) ([]chatlog.Session, error) {
	sessions, err := s.chat.Sessions(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("chat.Sessions failed: %w", err)
	}

	return sessions, nil
}

// withState runs step under the session lock, stores the resulting state and
// logs userText (when set) and the response. Log failures are not fatal.
func (s *Service) withState(
	ctx context.Context,
	sessionID string,
	step func(assistant.ConversationState) (assistant.ConversationState, assistant.Response),
	userText string,
) (assistant.Response, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	log := s.log.With().Str("session_id", sessionID).Logger()

	state, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return assistant.Response{}, fmt.Errorf("store.Load failed: %w", err)
	}

	next, resp := step(state)

	if err := s.store.Save(ctx, sessionID, next); err != nil {
		return assistant.Response{}, fmt.Errorf("store.Save failed: %w", err)
	}

	s.record(ctx, log, sessionID, userText, resp, next)

	return resp, nil
}

// record logs userText (when set) and the response. Log failures are not fatal.
func (s *Service) record(
	ctx context.Context,
	log zerolog.Logger,
	sessionID, userText string,
	resp assistant.Response,
	next assistant.ConversationState,
) {
	if userText != "" {
		if err := s.chat.Append(ctx, sessionID, assistant.RoleUser, userText); err != nil {
			log.Warn().Err(err).Msg("failed to log user message")
		}
	}
	if text := resp.Text(); text != "" {
		if err := s.chat.Append(ctx, sessionID, assistant.RoleAssistant, text); err != nil {
			log.Warn().Err(err).Msg("failed to log response")
		}
	}

	log.Info().Str("kind", string(resp.Kind)).Str("mode", string(next.Mode)).Msg("turn completed")
}
