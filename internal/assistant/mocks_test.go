package assistant_test

import (
	"context"
	"sync"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

type oracleMock struct {
	CompleteFunc func(ctx context.Context, turns []assistant.Turn) (string, error)

	mu    sync.Mutex
	calls [][]assistant.Turn
}

func (m *oracleMock) Complete(ctx context.Context, turns []assistant.Turn) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, append([]assistant.Turn(nil), turns...))
	m.mu.Unlock()
	return m.CompleteFunc(ctx, turns)
}

func (m *oracleMock) CompleteCalls() [][]assistant.Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func replyWith(reply string) *oracleMock {
	return &oracleMock{
		CompleteFunc: func(context.Context, []assistant.Turn) (string, error) {
			return reply, nil
		},
	}
}

type sendCall struct {
	To, Subject, Body string
}

type gatewayMock struct {
	SendFunc       func(ctx context.Context, to, subject, body string) (string, error)
	ListUnreadFunc func(ctx context.Context, maxResults int64) ([]assistant.UnreadEmailSummary, error)

	mu              sync.Mutex
	sendCalls       []sendCall
	listUnreadCalls []int64
}

func (m *gatewayMock) Send(ctx context.Context, to, subject, body string) (string, error) {
	m.mu.Lock()
	m.sendCalls = append(m.sendCalls, sendCall{To: to, Subject: subject, Body: body})
	m.mu.Unlock()
	return m.SendFunc(ctx, to, subject, body)
}

func (m *gatewayMock) ListUnread(ctx context.Context, maxResults int64) ([]assistant.UnreadEmailSummary, error) {
	m.mu.Lock()
	m.listUnreadCalls = append(m.listUnreadCalls, maxResults)
	m.mu.Unlock()
	return m.ListUnreadFunc(ctx, maxResults)
}

func (m *gatewayMock) SendCalls() []sendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendCalls
}

func (m *gatewayMock) ListUnreadCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listUnreadCalls
}
