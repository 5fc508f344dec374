package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"sync"
	"time"
)

// stateStore issues single-use OAuth state nonces that expire after ttl.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	issued map[string]time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		ttl:    ttl,
		now:    time.Now,
		issued: make(map[string]time.Time),
	}
}

func (s *stateStore) issue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	state := base64.URLEncoding.EncodeToString(b)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.prune(now)
	s.issued[state] = now.Add(s.ttl)

	return state, nil
}

// consume reports whether state was issued and has not expired. A state is
// accepted at most once.
func (s *stateStore) consume(state string) bool {
	if state == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	expiry, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)

	return !s.now().After(expiry)
}

// prune drops expired states. Callers hold mu.
func (s *stateStore) prune(now time.Time) {
	for state, expiry := range s.issued {
		if expiry.Before(now) {
			delete(s.issued, state)
		}
	}
}

func (s *stateStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}
