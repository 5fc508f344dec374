package llm_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
	"github.com/hal9000y/gmail-assistant/internal/llm"
)

func newServer(t *testing.T, handle func(req openai.ChatCompletionRequest) (int, any)) string {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		code, body := handle(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv.URL + "/v1"
}

func TestComplete(t *testing.T) {
	var got openai.ChatCompletionRequest
	baseURL := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		got = req
		return http.StatusOK, openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "Hello Ann"}},
			},
		}
	})

	o := llm.NewOpenAI(llm.Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"}, zerolog.Nop())

	reply, err := o.Complete(context.Background(), []assistant.Turn{
		{Role: assistant.RoleSystem, Content: "be formal"},
		{Role: assistant.RoleUser, Content: "I am Ann"},
		{Role: assistant.RoleAssistant, Content: "Noted"},
		{Role: assistant.RoleUser, Content: "Who am I?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello Ann", reply)

	assert.Equal(t, "test-model", got.Model)
	assert.Equal(t, llm.DefaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, llm.DefaultTemperature, got.Temperature, 0.0001)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, []string{
		got.Messages[0].Role, got.Messages[1].Role, got.Messages[2].Role, got.Messages[3].Role,
	})
	assert.Equal(t, "Who am I?", got.Messages[3].Content)
}

func TestCompleteZeroTemperature(t *testing.T) {
	var got openai.ChatCompletionRequest
	baseURL := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		got = req
		return http.StatusOK, openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "ok"}},
			},
		}
	})

	zero := float32(0)
	o := llm.NewOpenAI(llm.Config{APIKey: "test-key", BaseURL: baseURL, Temperature: &zero}, zerolog.Nop())

	_, err := o.Complete(context.Background(), []assistant.Turn{{Role: assistant.RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Less(t, got.Temperature, float32(0.0001), "an explicit zero is not replaced by the default")
}

func TestCompleteErrors(t *testing.T) {
	cases := []struct {
		name string
		code int
		body any
	}{
		{
			name: "server error",
			code: http.StatusInternalServerError,
			body: map[string]any{"error": map[string]any{"message": "boom", "type": "server_error"}},
		},
		{
			name: "no choices",
			code: http.StatusOK,
			body: openai.ChatCompletionResponse{},
		},
		{
			name: "blank content",
			code: http.StatusOK,
			body: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  "}},
			}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			baseURL := newServer(t, func(openai.ChatCompletionRequest) (int, any) {
				return tc.code, tc.body
			})
			o := llm.NewOpenAI(llm.Config{APIKey: "test-key", BaseURL: baseURL}, zerolog.Nop())

			_, err := o.Complete(context.Background(), []assistant.Turn{{Role: assistant.RoleUser, Content: "hi"}})
			require.Error(t, err)
		})
	}
}
