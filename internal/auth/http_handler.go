package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

type tok interface {
	AuthorizeCode(context.Context, string, string) error
	OAuthToken() (*oauth2.Token, error)
	RedirectURL() (string, error)
}

// HTTPHandler serves the browser side of the Gmail consent flow.
type HTTPHandler struct {
	tok tok
	log zerolog.Logger
}

// NewHTTPHandler creates an HTTP handler for OAuth2 flow.
func NewHTTPHandler(tok tok, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{tok: tok, log: log.With().Str("component", "oauth").Logger()}
}

// ServeHTTP starts the consent flow on ?redirect, completes it on ?code and
// otherwise reports the current token.
func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Get("redirect") != "":
		h.startConsent(w, r)
	case q.Get("code") != "":
		h.completeConsent(w, r, q.Get("code"), q.Get("state"))
	default:
		h.status(w)
	}
}

func (h *HTTPHandler) startConsent(w http.ResponseWriter, r *http.Request) {
	u, err := h.tok.RedirectURL()
	if err != nil {
		h.log.Error().Err(err).Msg("tok.RedirectURL failed")
		http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, u, http.StatusFound)
}

func (h *HTTPHandler) completeConsent(w http.ResponseWriter, r *http.Request, code, state string) {
	if err := h.tok.AuthorizeCode(r.Context(), code, state); err != nil {
		h.log.Warn().Err(err).Msg("tok.AuthorizeCode failed")
		http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
		return
	}

	h.log.Info().Msg("gmail access granted")
	http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
}

func (h *HTTPHandler) status(w http.ResponseWriter) {
	t, err := h.tok.OAuthToken()
	if errors.Is(err, ErrTokenNotSet) {
		http.Error(w, "Token not found, open ?redirect=1 to grant access", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("tok.OAuthToken failed")
		http.Error(w, "Unable to read token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Token: %s, expires: %s", maskLeft(t.AccessToken), t.Expiry.Format(time.RFC3339))
}

func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
