// Package llm talks to an OpenAI-compatible chat completion endpoint.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultMaxTokens   = 1024
	DefaultTemperature = 0.7
)

// ErrEmptyCompletion indicates the endpoint answered without any content.
var ErrEmptyCompletion = errors.New("empty completion")

// Config holds the endpoint settings. Zero values fall back to the defaults;
// a nil Temperature means DefaultTemperature while a pointer to 0 selects greedy decoding.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature *float32
}

// OpenAI completes conversations with a chat completion model.
type OpenAI struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	log         zerolog.Logger
}

// NewOpenAI creates a client for cfg.
func NewOpenAI(cfg Config, log zerolog.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	o := &OpenAI{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: DefaultTemperature,
		log:         log.With().Str("component", "llm").Logger(),
	}
	if o.model == "" {
		o.model = DefaultModel
	}
	if o.maxTokens == 0 {
		o.maxTokens = DefaultMaxTokens
	}
	if cfg.Temperature != nil {
		o.temperature = *cfg.Temperature
	}

	return o
}

// Complete sends turns as chat messages and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, turns []assistant.Turn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    chatRole(t.Role),
			Content: t.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: wireTemperature(o.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("client.CreateChatCompletion failed: %w", err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyCompletion
	}

	o.log.Debug().
		Str("model", resp.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("completion received")

	return resp.Choices[0].Message.Content, nil
}

// wireTemperature keeps an explicit zero from being dropped by the request's omitempty tag.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

func chatRole(r assistant.Role) string {
	switch r {
	case assistant.RoleSystem:
		return openai.ChatMessageRoleSystem
	case assistant.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}
