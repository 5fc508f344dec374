package assistant_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

func TestNewConversationState(t *testing.T) {
	s := assistant.NewConversationState()

	assert.Equal(t, assistant.ModeIdle, s.Mode)
	assert.Nil(t, s.Pending)
	require.Len(t, s.History, 1)
	assert.Equal(t, assistant.Turn{Role: assistant.RoleSystem, Content: assistant.SystemPrompt}, s.History[0])
}

func TestNormalize(t *testing.T) {
	t.Run("restores system entry and mode", func(t *testing.T) {
		s := assistant.ConversationState{
			History: []assistant.Turn{{Role: assistant.RoleUser, Content: "hi"}},
			Pending: &assistant.EmailDraft{To: "a@b.co", Subject: "S", Body: "B"},
			Mode:    assistant.ModeIdle,
		}

		n := s.Normalize()
		require.Len(t, n.History, 2)
		assert.Equal(t, assistant.RoleSystem, n.History[0].Role)
		assert.Equal(t, "hi", n.History[1].Content)
		assert.Equal(t, assistant.ModeAwaitingApproval, n.Mode)
	})

	t.Run("trims oversized history", func(t *testing.T) {
		s := assistant.NewConversationState()
		for i := range 12 {
			s.History = append(s.History, assistant.Turn{Role: assistant.RoleUser, Content: fmt.Sprintf("m%d", i)})
		}
		s.Mode = assistant.ModeAwaitingApproval

		n := s.Normalize()
		require.Len(t, n.History, assistant.HistoryLimit)
		assert.Equal(t, assistant.RoleSystem, n.History[0].Role)
		assert.Equal(t, "m5", n.History[1].Content)
		assert.Equal(t, "m11", n.History[7].Content)
		assert.Equal(t, assistant.ModeIdle, n.Mode)
	})

	t.Run("does not alias input", func(t *testing.T) {
		s := assistant.NewConversationState()
		s.Pending = &assistant.EmailDraft{To: "a@b.co"}

		n := s.Normalize()
		n.Pending.To = "changed"
		n.History[0].Content = "changed"

		assert.Equal(t, "a@b.co", s.Pending.To)
		assert.Equal(t, assistant.SystemPrompt, s.History[0].Content)
	})
}
