package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

type ChatRequest struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"session to continue, empty starts a new one"`
	Message   string `json:"message" jsonschema:"the user message"`
}

type chatSvc interface {
	Chat(ctx context.Context, sessionID, text string) (string, assistant.Response, error)
}

func NewChat(svc chatSvc) *Chat {
	return &Chat{svc: svc}
}

type Chat struct {
	svc chatSvc
}

func (t *Chat) Chat(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input ChatRequest,
) (*mcp.CallToolResult, TurnResult, error) {
	sessionID, resp, err := t.svc.Chat(ctx, input.SessionID, input.Message)
	if err != nil {
		return nil, TurnResult{}, fmt.Errorf("svc.Chat failed: %w", err)
	}

	return nil, newTurnResult(sessionID, resp), nil
}
