package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/hal9000y/gmail-assistant/internal/assistant"
)

// KeyPrefix namespaces conversation state keys.
const KeyPrefix = "assistant:session:"

// RedisStore keeps conversation state as JSON values with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient connects to redisURL and checks the connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL failed: %w", err)
	}

	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("client.Ping failed: %w", err)
	}

	return client, nil
}

// NewRedisStore creates a store on client. A zero ttl keeps keys forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, id string) (assistant.ConversationState, error) {
	b, err := s.client.Get(ctx, KeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return assistant.NewConversationState(), nil
	}
	if err != nil {
		return assistant.ConversationState{}, fmt.Errorf("client.Get failed: %w", err)
	}

	var state assistant.ConversationState
	if err := json.Unmarshal(b, &state); err != nil {
		return assistant.ConversationState{}, fmt.Errorf("json.Unmarshal failed: %w", err)
	}

	return state.Normalize(), nil
}

func (s *RedisStore) Save(ctx context.Context, id string, state assistant.ConversationState) error {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("json.Marshal failed: %w", err)
	}

	if err := s.client.Set(ctx, KeyPrefix+id, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("client.Set failed: %w", err)
	}

	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, KeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("client.Del failed: %w", err)
	}

	return nil
}
