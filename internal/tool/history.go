package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
	"github.com/hal9000y/gmail-assistant/internal/chatlog"
)

type HistoryRequest struct {
	SessionID string `json:"session_id" jsonschema:"conversation session ID"`
	Limit     int    `json:"limit,omitempty" jsonschema:"max messages to return"`
}

type HistoryMessage struct {
	Role      string `json:"role" jsonschema:"user or assistant"`
	Content   string `json:"content" jsonschema:"message text"`
	Timestamp string `json:"timestamp" jsonschema:"when the message was logged"`
}

type HistoryResponse struct {
	SessionID string           `json:"session_id" jsonschema:"conversation session ID"`
	Messages  []HistoryMessage `json:"messages" jsonschema:"logged messages, oldest first"`
	Pending   *Draft           `json:"pending,omitempty" jsonschema:"draft awaiting approval"`
}

type SessionsRequest struct {
	Limit int `json:"limit,omitempty" jsonschema:"max sessions to return"`
}

type SessionSummary struct {
	ID        string `json:"id" jsonschema:"session ID"`
	Title     string `json:"title" jsonschema:"first user message or a timestamp label"`
	Messages  int    `json:"messages" jsonschema:"number of logged messages"`
	StartedAt string `json:"started_at" jsonschema:"first message time"`
	UpdatedAt string `json:"updated_at" jsonschema:"last message time"`
}

type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions" jsonschema:"sessions, most recently active first"`
}

type historySvc interface {
	History(ctx context.Context, sessionID string, n int) ([]chatlog.Entry, error)
	Pending(ctx context.Context, sessionID string) (*assistant.EmailDraft, error)
	Sessions(ctx context.Context, limit int) ([]chatlog.Session, error)
}

func NewHistory(svc historySvc) *History {
	return &History{svc: svc}
}

// History exposes the conversation log.
type History struct {
	svc historySvc
}

func (t *History) History(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input HistoryRequest,
) (*mcp.CallToolResult, HistoryResponse, error) {
	entries, err := t.svc.History(ctx, input.SessionID, normalizeLimit(input.Limit))
	if err != nil {
		return nil, HistoryResponse{}, fmt.Errorf("svc.History failed: %w", err)
	}

	pending, err := t.svc.Pending(ctx, input.SessionID)
	if err != nil {
		return nil, HistoryResponse{}, fmt.Errorf("svc.Pending failed: %w", err)
	}

	messages := make([]HistoryMessage, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, HistoryMessage{
			Role:      string(e.Role),
			Content:   e.Content,
			Timestamp: e.CreatedAt.Format(timestampLayout),
		})
	}

	return nil, HistoryResponse{
		SessionID: input.SessionID,
		Messages:  messages,
		Pending:   toDraft(pending),
	}, nil
}

func (t *History) Sessions(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionsRequest,
) (*mcp.CallToolResult, SessionsResponse, error) {
	sessions, err := t.svc.Sessions(ctx, normalizeLimit(input.Limit))
	if err != nil {
		return nil, SessionsResponse{}, fmt.Errorf("svc.Sessions failed: %w", err)
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		summaries = append(summaries, SessionSummary{
			ID:        s.ID,
			Title:     s.Title,
			Messages:  s.Messages,
			StartedAt: s.StartedAt.Format(timestampLayout),
			UpdatedAt: s.UpdatedAt.Format(timestampLayout),
		})
	}

	return nil, SessionsResponse{Sessions: summaries}, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return chatlog.DefaultSessionLimit
	}
	if limit > 100 {
		return 100
	}
	return limit
}
