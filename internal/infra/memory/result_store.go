package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ResultStore keeps finalized results in process memory.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.SessionResult
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.SessionResult)}
}

func (s *ResultStore) SaveResult(_ context.Context, result domain.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[result.SessionID] = result
	return nil
}

func (s *ResultStore) GetResult(_ context.Context, sessionID string) (domain.SessionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[sessionID]
	if !ok {
		return domain.SessionResult{}, domain.ErrResultNotFound
	}
	return result, nil
}
