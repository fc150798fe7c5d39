package memory

import (
	"sync"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	byQuiz   map[string][]*app.Session
	players  map[string]string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		byQuiz:   make(map[string][]*app.Session),
		players:  make(map[string]string),
	}
}

func (s *SessionStore) Add(session *app.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID()]; exists {
		return domain.ErrDuplicateSessionID
	}
	s.sessions[session.ID()] = session
	s.byQuiz[session.QuizID()] = append(s.byQuiz[session.QuizID()], session)
	return nil
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

// ListByQuiz returns the sessions of a quiz in start order.
func (s *SessionStore) ListByQuiz(quizID string) []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*app.Session(nil), s.byQuiz[quizID]...)
}

func (s *SessionStore) BindPlayer(playerID, sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[playerID] = sessionID
}

func (s *SessionStore) GetByPlayer(playerID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}
