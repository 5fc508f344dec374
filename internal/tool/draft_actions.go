package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

type SessionRequest struct {
	SessionID string `json:"session_id" jsonschema:"conversation session ID"`
}

type draftSvc interface {
	ConfirmSend(ctx context.Context, sessionID string) (assistant.Response, error)
	CancelDraft(ctx context.Context, sessionID string) (assistant.Response, error)
	Reset(ctx context.Context, sessionID string) error
}

func NewDraftActions(svc draftSvc) *DraftActions {
	return &DraftActions{svc: svc}
}

// DraftActions approves or discards the pending draft of a session.
type DraftActions struct {
	svc draftSvc
}

func (t *DraftActions) ConfirmSend(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionRequest,
) (*mcp.CallToolResult, TurnResult, error) {
	resp, err := t.svc.ConfirmSend(ctx, input.SessionID)
	if err != nil {
		return nil, TurnResult{}, fmt.Errorf("svc.ConfirmSend failed: %w", err)
	}

	return nil, newTurnResult(input.SessionID, resp), nil
}

func (t *DraftActions) CancelDraft(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionRequest,
) (*mcp.CallToolResult, TurnResult, error) {
	resp, err := t.svc.CancelDraft(ctx, input.SessionID)
	if err != nil {
		return nil, TurnResult{}, fmt.Errorf("svc.CancelDraft failed: %w", err)
	}

	return nil, newTurnResult(input.SessionID, resp), nil
}

func (t *DraftActions) Reset(
	ctx context.Context,
	req *mcp.CallToolRequest,
	input SessionRequest,
) (*mcp.CallToolResult, TurnResult, error) {
	if err := t.svc.Reset(ctx, input.SessionID); err != nil {
		return nil, TurnResult{}, fmt.Errorf("svc.Reset failed: %w", err)
	}

	return nil, newTurnResult(input.SessionID, assistant.Response{
		Kind:    assistant.KindInfo,
		Message: "Conversation reset.",
	}), nil
}
