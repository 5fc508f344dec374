package assistant

import "errors"

var (
	// ErrOracleUnavailable indicates the language model call failed.
	ErrOracleUnavailable = errors.New("oracle unavailable")
	// ErrMalformedJSON indicates no parseable JSON object was found in the model reply.
	ErrMalformedJSON = errors.New("malformed json in model reply")
	// ErrMissingRecipient indicates the draft has no usable recipient.
	ErrMissingRecipient = errors.New("missing recipient")
	// ErrEmptyBody indicates the draft has no body.
	ErrEmptyBody = errors.New("empty body")
	// ErrSendFailed indicates the mail gateway failed to send the draft.
	ErrSendFailed = errors.New("send failed")
	// ErrReadFailed indicates the mail gateway failed to list unread messages.
	ErrReadFailed = errors.New("read failed")
)

// userMessage converts a pipeline error into the text shown to the user.
func userMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingRecipient):
		return "Please specify the recipient email address. Who should receive this email?"
	case errors.Is(err, ErrEmptyBody):
		return "Could not generate email content. Please provide more details about what you want to say."
	case errors.Is(err, ErrMalformedJSON):
		return "Could not generate email. Please provide more specific details about the recipient, subject, and what you want to communicate."
	case errors.Is(err, ErrOracleUnavailable):
		return "The language model is not reachable right now. Please try again."
	case errors.Is(err, ErrSendFailed):
		return "Error sending email, the draft was discarded."
	case errors.Is(err, ErrReadFailed):
		return "Error reading emails."
	default:
		return "Something went wrong."
	}
}
