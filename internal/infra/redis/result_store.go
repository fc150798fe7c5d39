package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// ResultStore keeps finalized results as JSON blobs with expiration.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	if err := s.client.Set(ctx, s.key(result.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (s *ResultStore) GetResult(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load result: %w", err)
	}
	var result domain.SessionResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.SessionResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}

func (s *ResultStore) key(sessionID string) string {
	return "quiz:session:" + sessionID + ":result"
}
