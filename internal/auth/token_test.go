package auth_test

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/hal9000y/gmail-assistant/internal/auth"
)

func testConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth",
		Scopes:       []string{"scope-a"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.example.com/auth",
			TokenURL: "https://accounts.example.com/token",
		},
	}
}

func writeToken(t *testing.T, path string, token *oauth2.Token) {
	t.Helper()

	b, err := json.Marshal(token)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0600))
}

func TestNewTokenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	tok, err := auth.NewToken(testConfig(), path, zerolog.Nop())
	require.NoError(t, err)

	_, err = tok.OAuthToken()
	require.ErrorIs(t, err, auth.ErrTokenNotSet)

	_, err = tok.TokenSource(context.Background())
	require.ErrorIs(t, err, auth.ErrTokenNotSet)

	require.NoError(t, tok.Persist())
	_, err = os.Stat(path)
	require.ErrorIs(t, err, os.ErrNotExist, "nothing to persist without a token")
}

func TestNewTokenCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := auth.NewToken(testConfig(), path, zerolog.Nop())
	require.Error(t, err)
}

func TestTokenSourceAndPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	writeToken(t, path, &oauth2.Token{AccessToken: "access-1234", TokenType: "Bearer", RefreshToken: "refresh", Expiry: expiry})

	tok, err := auth.NewToken(testConfig(), path, zerolog.Nop())
	require.NoError(t, err)

	ts, err := tok.TokenSource(context.Background())
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-1234", got.AccessToken)

	require.NoError(t, tok.Persist())

	reloaded, err := auth.NewToken(testConfig(), path, zerolog.Nop())
	require.NoError(t, err)

	current, err := reloaded.OAuthToken()
	require.NoError(t, err)
	assert.Equal(t, "access-1234", current.AccessToken)
	assert.Equal(t, "refresh", current.RefreshToken)
	assert.True(t, expiry.Equal(current.Expiry))
}

func TestRedirectURL(t *testing.T) {
	tok, err := auth.NewToken(testConfig(), "", zerolog.Nop())
	require.NoError(t, err)

	first, err := tok.RedirectURL()
	require.NoError(t, err)
	second, err := tok.RedirectURL()
	require.NoError(t, err)

	u1, err := url.Parse(first)
	require.NoError(t, err)
	u2, err := url.Parse(second)
	require.NoError(t, err)

	assert.Equal(t, "accounts.example.com", u1.Host)
	assert.Equal(t, "offline", u1.Query().Get("access_type"))
	assert.Equal(t, "client-id", u1.Query().Get("client_id"))
	assert.NotEmpty(t, u1.Query().Get("state"))
	assert.NotEqual(t, u1.Query().Get("state"), u2.Query().Get("state"))
}

func TestAuthorizeCodeRejectsUnknownState(t *testing.T) {
	tok, err := auth.NewToken(testConfig(), "", zerolog.Nop())
	require.NoError(t, err)

	require.Error(t, tok.AuthorizeCode(context.Background(), "code", ""))
	require.Error(t, tok.AuthorizeCode(context.Background(), "code", "forged-state"))
}
