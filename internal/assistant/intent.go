package assistant

import (
	"regexp"
	"strings"
)

// Intent is the routing decision derived from a user turn.
type Intent int

const (
	IntentGeneralQuery Intent = iota
	IntentComposeEmail
	IntentReadEmail
	IntentModifyPendingEmail
)

func (i Intent) String() string {
	switch i {
	case IntentComposeEmail:
		return "compose_email"
	case IntentReadEmail:
		return "read_email"
	case IntentModifyPendingEmail:
		return "modify_pending_email"
	default:
		return "general_query"
	}
}

// Classifier maps raw user text to an intent given the current approval mode.
type Classifier interface {
	Classify(text string, mode Mode) Intent
}

var (
	modifyKeywords = []string{
		"change", "modify", "edit", "update", "alter", "revise",
		"make it", "can you", "please change", "update the",
	}
	composeKeywords = []string{
		"send email", "mail to", "write email", "send a mail", "compose email",
		"email to", "send an email", "write a mail", "compose a mail",
	}
	composeVerbs = []string{"send", "mail", "write"}
	readKeywords = []string{
		"read email", "show inbox", "unread emails", "recent emails",
		"check mail", "read my messages", "latest emails",
		"fetch emails", "list my emails", "show me emails", "read my inbox",
	}

	emailAddressRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	punctuationRe  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
)

// KeywordClassifier detects intents with case-insensitive substring matching.
type KeywordClassifier struct{}

// Classify checks modification first, then compose, then read. Modification and
// compose are gated by mode so they can never both apply.
func (KeywordClassifier) Classify(text string, mode Mode) Intent {
	lower := strings.ToLower(text)

	if mode == ModeAwaitingApproval && containsAny(lower, modifyKeywords) {
		return IntentModifyPendingEmail
	}

	if mode == ModeIdle && isComposeRequest(lower) {
		return IntentComposeEmail
	}

	if containsAny(stripPunctuation(lower), readKeywords) {
		return IntentReadEmail
	}

	return IntentGeneralQuery
}

// stripPunctuation drops everything but letters, digits, underscores and spaces, in any script.
func stripPunctuation(s string) string {
	return punctuationRe.ReplaceAllString(s, "")
}

func isComposeRequest(lower string) bool {
	if containsAny(lower, composeKeywords) {
		return true
	}
	return emailAddressRe.MatchString(lower) && containsAny(lower, composeVerbs)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
