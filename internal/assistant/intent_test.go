package assistant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

func TestKeywordClassifier(t *testing.T) {
	cases := []struct {
		text     string
		mode     assistant.Mode
		expected assistant.Intent
	}{
		{text: "send email to bob@example.com saying thanks", mode: assistant.ModeIdle, expected: assistant.IntentComposeEmail},
		{text: "Compose a mail for the team about Friday", mode: assistant.ModeIdle, expected: assistant.IntentComposeEmail},
		{text: "write to alice@corp.io about the invoice", mode: assistant.ModeIdle, expected: assistant.IntentComposeEmail},
		{text: "alice@corp.io is my colleague", mode: assistant.ModeIdle, expected: assistant.IntentGeneralQuery},
		{text: "read my inbox", mode: assistant.ModeIdle, expected: assistant.IntentReadEmail},
		{text: "Check... mail please", mode: assistant.ModeIdle, expected: assistant.IntentReadEmail},
		{text: "show me emails!", mode: assistant.ModeAwaitingApproval, expected: assistant.IntentReadEmail},
		{text: "change the subject to Hello", mode: assistant.ModeAwaitingApproval, expected: assistant.IntentModifyPendingEmail},
		{text: "Can you read my inbox", mode: assistant.ModeAwaitingApproval, expected: assistant.IntentModifyPendingEmail},
		{text: "change of plans, what is the weather", mode: assistant.ModeIdle, expected: assistant.IntentGeneralQuery},
		{text: "send email to carol@example.com", mode: assistant.ModeAwaitingApproval, expected: assistant.IntentGeneralQuery},
		{text: "hello there", mode: assistant.ModeIdle, expected: assistant.IntentGeneralQuery},
		{text: "show meé emails", mode: assistant.ModeIdle, expected: assistant.IntentGeneralQuery},
		{text: "¿Puedes? read my inbox", mode: assistant.ModeIdle, expected: assistant.IntentReadEmail},
	}

	var classifier assistant.KeywordClassifier
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.expected, classifier.Classify(tc.text, tc.mode))
		})
	}
}

func TestKeywordClassifierModeGates(t *testing.T) {
	var classifier assistant.KeywordClassifier
	inputs := []string{
		"send email to bob@example.com and change the tone",
		"modify my email to dan@example.com",
		"update the mail to eve@example.com",
	}

	for _, text := range inputs {
		assert.NotEqual(t, assistant.IntentModifyPendingEmail, classifier.Classify(text, assistant.ModeIdle), text)
		assert.NotEqual(t, assistant.IntentComposeEmail, classifier.Classify(text, assistant.ModeAwaitingApproval), text)
	}
}

func TestIntentString(t *testing.T) {
	assert.Equal(t, "compose_email", assistant.IntentComposeEmail.String())
	assert.Equal(t, "read_email", assistant.IntentReadEmail.String())
	assert.Equal(t, "modify_pending_email", assistant.IntentModifyPendingEmail.String())
	assert.Equal(t, "general_query", assistant.IntentGeneralQuery.String())
}
