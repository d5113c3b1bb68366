// File: services/intelligence/contextStore.go
package ai

import (
	"context"
	"encoding/json"
	"time"

	"serenity/models"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const convContextPrefix = "conv:ctx:"

// maxTurns bounds the rolling window handed to the model.
const maxTurns = 12

// RedisContextStore keeps a rolling conversation window per client so
// the extractor can resolve references like "same time as last week".
type RedisContextStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisContextStore(client *redis.Client, ttl time.Duration) *RedisContextStore {
	return &RedisContextStore{client: client, ttl: ttl}
}

func (s *RedisContextStore) Get(ctx context.Context, clientAddress string) (*models.Conversation, error) {
	key := convContextPrefix + clientAddress
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return &models.Conversation{SessionID: uuid.New().String()}, nil
	}
	if err != nil {
		return nil, err
	}
	var conv models.Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *RedisContextStore) Append(ctx context.Context, clientAddress string, turns ...models.ConversationTurn) error {
	conv, err := s.Get(ctx, clientAddress)
	if err != nil {
		return err
	}
	conv.Turns = append(conv.Turns, turns...)
	if len(conv.Turns) > maxTurns {
		conv.Turns = conv.Turns[len(conv.Turns)-maxTurns:]
	}
	b, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, convContextPrefix+clientAddress, b, s.ttl).Err()
}

func (s *RedisContextStore) Clear(ctx context.Context, clientAddress string) error {
	return s.client.Del(ctx, convContextPrefix+clientAddress).Err()
}
