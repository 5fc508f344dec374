package assistant

// Mode is the approval state of a conversation.
type Mode string

const (
	ModeIdle             Mode = "idle"
	ModeAwaitingApproval Mode = "awaiting_approval"
)

const (
	// HistoryLimit caps the history, system entry included.
	HistoryLimit = 8

	// SystemPrompt is the fixed first entry of every history.
	SystemPrompt = "You are a formal, helpful assistant. Be polite, answer professionally, and remember user's name if they tell you."
)

// ConversationState is everything the assistant knows about one conversation.
// It is a value: operations return an updated copy and never mutate their input.
type ConversationState struct {
	History []Turn      `json:"history"`
	Pending *EmailDraft `json:"pending,omitempty"`
	Mode    Mode        `json:"mode"`
}

// NewConversationState returns an idle state holding only the system entry.
func NewConversationState() ConversationState {
	return ConversationState{
		History: []Turn{{Role: RoleSystem, Content: SystemPrompt}},
		Mode:    ModeIdle,
	}
}

// Normalize repairs a state loaded from storage: it restores the system entry,
// enforces the history cap and makes Mode agree with Pending.
func (s ConversationState) Normalize() ConversationState {
	out := ConversationState{Pending: copyDraft(s.Pending)}

	if len(s.History) == 0 || s.History[0].Role != RoleSystem {
		out.History = make([]Turn, 0, len(s.History)+1)
		out.History = append(out.History, Turn{Role: RoleSystem, Content: SystemPrompt})
		out.History = append(out.History, s.History...)
	} else {
		out.History = append([]Turn(nil), s.History...)
	}
	out.History = trimHistory(out.History)

	if out.Pending != nil {
		out.Mode = ModeAwaitingApproval
	} else {
		out.Mode = ModeIdle
	}

	return out
}

// Clone returns a deep copy of the state.
func (s ConversationState) Clone() ConversationState {
	return ConversationState{
		History: append([]Turn(nil), s.History...),
		Pending: copyDraft(s.Pending),
		Mode:    s.Mode,
	}
}

func (s ConversationState) withTurn(role Role, content string) ConversationState {
	out := s.Clone()
	out.History = trimHistory(append(out.History, Turn{Role: role, Content: content}))
	return out
}

func (s ConversationState) withDraft(d EmailDraft) ConversationState {
	out := s.Clone()
	out.Pending = &d
	out.Mode = ModeAwaitingApproval
	return out
}

func (s ConversationState) withoutDraft() ConversationState {
	out := s.Clone()
	out.Pending = nil
	out.Mode = ModeIdle
	return out
}

// trimHistory evicts the oldest non-system entries beyond HistoryLimit.
func trimHistory(h []Turn) []Turn {
	if len(h) <= HistoryLimit {
		return h
	}
	excess := len(h) - HistoryLimit
	trimmed := make([]Turn, 0, HistoryLimit)
	trimmed = append(trimmed, h[0])
	return append(trimmed, h[1+excess:]...)
}

func copyDraft(d *EmailDraft) *EmailDraft {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
