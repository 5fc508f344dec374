package assistant

import (
	"fmt"
	"strings"
)

// Text renders the response for text-only presentation layers and the conversation log.
func (r Response) Text() string {
	switch r.Kind {
	case KindEmailPreview:
		if r.Draft == nil {
			return ""
		}
		return fmt.Sprintf("Email preview\nTo: %s\nSubject: %s\n\n%s\n\nConfirm to send, cancel to discard, or ask for changes.",
			r.Draft.To, r.Draft.Subject, r.Draft.Body)
	case KindEmails:
		var b strings.Builder
		b.WriteString("Recent unread emails:\n")
		for i, e := range r.Emails {
			fmt.Fprintf(&b, "\nEmail #%d\nFrom: %s\nSubject: %s\nSnippet: %s\n", i+1, e.Sender, e.Subject, e.Snippet)
		}
		return b.String()
	default:
		return r.Message
	}
}
