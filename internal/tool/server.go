// Package tool exposes the assistant as MCP tools.
package tool

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type conversationSvc interface {
	chatSvc
	draftSvc
	historySvc
}

// NewServer creates an MCP server with the assistant tools.
func NewServer(svc conversationSvc) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "gmail-assistant", Version: "v1.0.0"}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "chat",
		Description: "Talk to the email assistant. It answers questions, drafts emails " +
			"(\"send email to bob@example.com saying thanks\"), revises the pending draft " +
			"(\"make it more formal\") and lists unread emails (\"read my inbox\").",
	}, NewChat(svc).Chat)

	actions := NewDraftActions(svc)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "confirm_send",
		Description: "Send the draft awaiting approval in the session. The draft is discarded even if sending fails",
	}, actions.ConfirmSend)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "cancel_draft",
		Description: "Discard the draft awaiting approval in the session",
	}, actions.CancelDraft)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reset_session",
		Description: "Forget the conversation state of the session, including any pending draft. The message log is kept",
	}, actions.Reset)

	history := NewHistory(svc)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "history",
		Description: "Get the logged messages and the pending draft of a session",
	}, history.History)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "sessions",
		Description: "List recent conversation sessions with their titles",
	}, history.Sessions)

	return server
}
