// Package auth handles OAuth2 token management and persistence.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// ErrTokenNotSet indicates no OAuth token is available.
var ErrTokenNotSet = errors.New("no token defined")

const stateTTL = 5 * time.Minute

// Token manages the Gmail OAuth2 token with thread-safe operations.
// Tokens refreshed through TokenSource are kept so Persist writes the latest one.
type Token struct {
	mu          sync.RWMutex
	cfg         *oauth2.Config
	token       *oauth2.Token
	persistPath string
	states      *stateStore
	log         zerolog.Logger
}

// NewToken creates a Token manager, loading from disk if path provided.
func NewToken(cfg *oauth2.Config, persistPath string, log zerolog.Logger) (*Token, error) {
	t := &Token{
		cfg:         cfg,
		persistPath: persistPath,
		states:      newStateStore(stateTTL),
		log:         log.With().Str("component", "auth").Logger(),
	}
	if persistPath == "" {
		return t, nil
	}

	b, err := os.ReadFile(persistPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			t.log.Info().Str("path", persistPath).Msg("token file doesn't exist, it will be created on shutdown")
			return t, nil
		}

		return nil, fmt.Errorf("os.ReadFile failed: %w", err)
	}

	token := &oauth2.Token{}
	if err := json.Unmarshal(b, token); err != nil {
		return nil, fmt.Errorf("json.Unmarshal failed: %w", err)
	}
	t.token = token

	return t, nil
}

// RedirectURL generates the OAuth2 authorization URL with a fresh single-use state.
// Offline access with forced consent makes Google return a refresh token.
func (t *Token) RedirectURL() (string, error) {
	state, err := t.states.issue()
	if err != nil {
		return "", fmt.Errorf("states.issue failed: %w", err)
	}

	return t.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// AuthorizeCode exchanges an authorization code for an access token after validating state.
func (t *Token) AuthorizeCode(ctx context.Context, code string, state string) error {
	if !t.states.consume(state) {
		return errors.New("invalid or expired state parameter")
	}

	tok, err := t.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("cfg.Exchange failed: %w", err)
	}

	t.mu.Lock()
	t.token = tok
	t.mu.Unlock()

	t.log.Info().Time("expiry", tok.Expiry).Msg("authorization code exchanged")

	return nil
}

// OAuthToken returns the current OAuth2 token.
func (t *Token) OAuthToken() (*oauth2.Token, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.token == nil {
		return nil, ErrTokenNotSet
	}

	return t.token, nil
}

// TokenSource returns a refreshing source seeded with the current token.
func (t *Token) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := t.OAuthToken()
	if err != nil {
		return nil, err
	}

	return &recordingSource{
		base:  t.cfg.TokenSource(ctx, tok),
		owner: t,
	}, nil
}

func (t *Token) update(tok *oauth2.Token) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != nil && t.token.AccessToken == tok.AccessToken {
		return
	}
	t.token = tok
	t.log.Debug().Time("expiry", tok.Expiry).Msg("token refreshed")
}

// Persist saves the token to disk.
func (t *Token) Persist() error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.persistPath == "" || t.token == nil {
		return nil
	}

	b, err := json.Marshal(t.token)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := os.WriteFile(t.persistPath, b, 0600); err != nil {
		return fmt.Errorf("os.WriteFile failed: %w", err)
	}

	return nil
}

type recordingSource struct {
	base  oauth2.TokenSource
	owner *Token
}

func (s *recordingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("base.Token failed: %w", err)
	}
	s.owner.update(tok)
	return tok, nil
}
