package redis

import (
	"context"
	"fmt"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
)

const sessionIDsKey = "quiz:session:ids"

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Live sessions stay in a local map; their mutable state never leaves the process.
//   - Redis holds the set of every id ever issued so ids are not reused across
//     restarts or instances.
type SessionStore struct {
	client *redis.Client
	local  *memory.SessionStore
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{
		client: client,
		local:  memory.NewSessionStore(),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	ctx := context.Background()
	added, err := s.client.SAdd(ctx, sessionIDsKey, session.ID()).Result()
	if err != nil {
		return fmt.Errorf("register session id: %w", err)
	}
	if added == 0 {
		return domain.ErrDuplicateSessionID
	}
	return s.local.Add(session)
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	return s.local.Get(sessionID)
}

func (s *SessionStore) ListByQuiz(quizID string) []*app.Session {
	return s.local.ListByQuiz(quizID)
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.local.BindPlayer(playerID, sessionID)
}

func (s *SessionStore) GetByPlayer(playerID string) (*app.Session, bool) {
	return s.local.GetByPlayer(playerID)
}
