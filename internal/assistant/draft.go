package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

const (
	// RecipientPlaceholder is what the model is told to emit when the recipient is unclear.
	RecipientPlaceholder = "RECIPIENT_NEEDED"

	// DefaultSubject replaces an empty subject in generated drafts.
	DefaultSubject = "Message from your assistant"
)

const generatePrompt = `Based on the user's request, generate a complete email with all necessary details.

User request: %q

Please analyze the request and generate a professional email. Return ONLY a valid JSON object with these fields:
{
    "to": "recipient email address (extract or ask for clarification if missing)",
    "subject": "appropriate email subject line",
    "body": "complete, well-formatted email body with proper greeting, content, and closing"
}

Guidelines for email generation:
1. If recipient is not clear, use "%s" as placeholder
2. Create an appropriate subject line based on the content
3. Write a complete, professional email body including:
   - Proper greeting (Dear [Name]/Hello/Hi)
   - Main content based on user's request
   - Appropriate closing (Best regards, Thank you, etc.)
   - Professional tone unless specified otherwise
4. If the request lacks specific details, create reasonable content while keeping it professional
5. Make the email complete and ready to send

Return only the JSON object, no additional text.`

const regeneratePrompt = `Current email draft:
To: %s
Subject: %s
Body: %s

User modification request: %q

Please modify the email according to the user's request and return the complete updated email in JSON format:
{
    "to": "recipient email (keep same unless user wants to change)",
    "subject": "updated or original subject",
    "body": "complete updated email body with proper formatting, greeting, content, and closing"
}

Guidelines for modifications:
1. Keep the original structure unless specifically asked to change
2. Preserve every aspect of the draft the user did not ask to change
3. Maintain professional tone unless asked otherwise
4. Make sure the email remains complete and well-formatted
5. Include proper greeting and closing in the body

Return only the JSON object.`

// Generator turns free text into validated drafts with a single model round trip.
type Generator struct {
	oracle Oracle
}

// NewGenerator creates a Generator backed by oracle.
func NewGenerator(oracle Oracle) *Generator {
	return &Generator{oracle: oracle}
}

// Generate drafts a new email from the user's request.
func (g *Generator) Generate(ctx context.Context, userText string) (EmailDraft, error) {
	reply, err := g.complete(ctx, fmt.Sprintf(generatePrompt, userText, RecipientPlaceholder))
	if err != nil {
		return EmailDraft{}, err
	}

	draft, err := ExtractDraft(reply)
	if err != nil {
		return EmailDraft{}, err
	}

	return validateDraft(draft)
}

// Regenerate rewrites current according to modification. The result replaces
// current as a whole; an empty or placeholder recipient keeps the current one.
func (g *Generator) Regenerate(ctx context.Context, current EmailDraft, modification string) (EmailDraft, error) {
	prompt := fmt.Sprintf(regeneratePrompt, current.To, current.Subject, current.Body, modification)

	reply, err := g.complete(ctx, prompt)
	if err != nil {
		return EmailDraft{}, err
	}

	draft, err := ExtractDraft(reply)
	if err != nil {
		return EmailDraft{}, err
	}

	if !hasRecipient(draft.To) {
		draft.To = current.To
	}

	return validateDraft(draft)
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := g.oracle.Complete(ctx, []Turn{{Role: RoleUser, Content: prompt}})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrOracleUnavailable, err)
	}
	return reply, nil
}

// ExtractDraft pulls a draft out of free-form model output. It strips a code
// fence, parses the text between the first '{' and the last '}', and falls back
// to parsing the whole cleaned reply.
func ExtractDraft(reply string) (EmailDraft, error) {
	cleaned := stripCodeFence(reply)

	var draft EmailDraft
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &draft); err == nil {
			return draft, nil
		}
	}

	if err := json.Unmarshal([]byte(cleaned), &draft); err != nil {
		return EmailDraft{}, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}

	return draft, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func validateDraft(d EmailDraft) (EmailDraft, error) {
	d.To = strings.TrimSpace(d.To)
	d.Subject = strings.TrimSpace(d.Subject)

	if !hasRecipient(d.To) {
		return EmailDraft{}, ErrMissingRecipient
	}
	if strings.TrimSpace(d.Body) == "" {
		return EmailDraft{}, ErrEmptyBody
	}
	if d.Subject == "" {
		d.Subject = DefaultSubject
	}

	return d, nil
}

func hasRecipient(to string) bool {
	to = strings.TrimSpace(to)
	return to != "" && to != RecipientPlaceholder
}
