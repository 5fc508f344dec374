// Package session persists conversation state between turns.
package session

import (
	"context"
	"sync"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

// Store keeps one ConversationState per session id.
// Load returns a fresh state for unknown ids.
type Store interface {
	Load(ctx context.Context, id string) (assistant.ConversationState, error)
	Save(ctx context.Context, id string, state assistant.ConversationState) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]assistant.ConversationState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]assistant.ConversationState)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (assistant.ConversationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.states[id]
	if !ok {
		return assistant.NewConversationState(), nil
	}

	return state.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id string, state assistant.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[id] = state.Clone()

	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.states, id)

	return nil
}
