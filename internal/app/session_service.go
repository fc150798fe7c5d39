package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/benbjohnson/clock"
	"github.com/lithammer/shortuuid/v3"
)

// SessionRepository holds every session ever started. Sessions are never
// removed so ids stay unique across active and historical sessions.
type SessionRepository interface {
	// Add registers a session and fails with domain.ErrDuplicateSessionID
	// when its id was already used.
	Add(session *Session) error
	Get(sessionID string) (*Session, bool)
	ListByQuiz(quizID string) []*Session
	BindPlayer(playerID, sessionID string)
	GetByPlayer(playerID string) (*Session, bool)
}

// QuizRepository loads quiz snapshots (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ResultStore persists finalized session results outside the process.
type ResultStore interface {
	SaveResult(ctx context.Context, result domain.SessionResult) error
	// GetResult fails with domain.ErrResultNotFound for unknown sessions.
	GetResult(ctx context.Context, sessionID string) (domain.SessionResult, error)
}

const (
	DefaultCountdown        = 3 * time.Second
	DefaultMaxActivePerQuiz = 10
	DefaultMaxAutoStart     = 50
)

// Options tunes the session runtime. Zero values select defaults.
type Options struct {
	Countdown        time.Duration
	MaxActivePerQuiz int
	MaxAutoStart     int
	Clock            clock.Clock
	Logger           *slog.Logger
	// NewSessionID generates candidate session ids; collisions are retried.
	NewSessionID func() string
}

func (o Options) withDefaults() Options {
	if o.Countdown <= 0 {
		o.Countdown = DefaultCountdown
	}
	if o.MaxActivePerQuiz <= 0 {
		o.MaxActivePerQuiz = DefaultMaxActivePerQuiz
	}
	if o.MaxAutoStart <= 0 {
		o.MaxAutoStart = DefaultMaxAutoStart
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.NewSessionID == nil {
		o.NewSessionID = newSessionID
	}
	return o
}

func newSessionID() string {
	return shortuuid.New()[:8]
}

const sessionIDRetries = 50

// SessionService contains the session runtime use cases.
type SessionService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	results  ResultStore
	opts     Options
	logger   *slog.Logger

	// startMu serializes the per-quiz active cap check with registration.
	startMu sync.Mutex
}

func NewSessionService(sessions SessionRepository, quizzes QuizRepository, results ResultStore, opts Options) *SessionService {
	opts = opts.withDefaults()
	return &SessionService{
		sessions: sessions,
		quizzes:  quizzes,
		results:  results,
		opts:     opts,
		logger:   opts.Logger,
	}
}

// StartSession creates a session in LOBBY over a snapshot of the quiz.
func (s *SessionService) StartSession(ctx context.Context, quizID, host string, autoStart int) (string, error) {
	if autoStart < 0 || autoStart > s.opts.MaxAutoStart {
		return "", domain.ErrAutoStartRange
	}
	quiz, err := s.ownedQuiz(ctx, quizID, host)
	if err != nil {
		return "", err
	}
	if len(quiz.Questions) == 0 {
		return "", domain.ErrNoQuestions
	}

	s.startMu.Lock()
	defer s.startMu.Unlock()

	active := 0
	for _, session := range s.sessions.ListByQuiz(quizID) {
		if session.Active() {
			active++
		}
	}
	if active >= s.opts.MaxActivePerQuiz {
		return "", domain.ErrTooManyActive
	}

	for retries := sessionIDRetries; retries > 0; retries-- {
		session := NewSession(s.opts.NewSessionID(), quiz, autoStart, s.opts)
		err := s.sessions.Add(session)
		if errors.Is(err, domain.ErrDuplicateSessionID) {
			continue
		}
		if err != nil {
			return "", err
		}
		s.logger.Info("session started",
			slog.String("session_id", session.ID()),
			slog.String("quiz_id", quizID),
			slog.Int("auto_start", autoStart))
		return session.ID(), nil
	}
	return "", fmt.Errorf("no session id available: %w", domain.ErrDuplicateSessionID)
}

// ApplyAction runs a host action against a session.
func (s *SessionService) ApplyAction(ctx context.Context, sessionID, host string, action domain.Action) error {
	session, err := s.ownedSession(sessionID, host)
	if err != nil {
		return err
	}
	phase, err := session.Apply(action)
	if err != nil {
		return err
	}
	if phase == domain.PhaseFinalResults && action == domain.ActionGoToFinalResults {
		s.persistResult(ctx, session)
	}
	return nil
}

func (s *SessionService) persistResult(ctx context.Context, session *Session) {
	if s.results == nil {
		return
	}
	result, err := session.FinalResult()
	if err != nil {
		return
	}
	if err := s.results.SaveResult(ctx, result); err != nil {
		s.logger.ErrorContext(ctx, "persist session result",
			slog.String("session_id", session.ID()),
			slog.Any("error", err))
	}
}

// GetSessionStatus returns the host view of a session.
func (s *SessionService) GetSessionStatus(_ context.Context, sessionID, host string) (domain.SessionStatus, error) {
	session, err := s.ownedSession(sessionID, host)
	if err != nil {
		return domain.SessionStatus{}, err
	}
	return session.Status(), nil
}

// ListSessions splits a quiz's sessions into active and ended ids.
func (s *SessionService) ListSessions(ctx context.Context, quizID, host string) (domain.SessionList, error) {
	if _, err := s.ownedQuiz(ctx, quizID, host); err != nil {
		return domain.SessionList{}, err
	}
	list := domain.SessionList{Active: []string{}, Inactive: []string{}}
	for _, session := range s.sessions.ListByQuiz(quizID) {
		if session.Active() {
			list.Active = append(list.Active, session.ID())
		} else {
			list.Inactive = append(list.Inactive, session.ID())
		}
	}
	sort.Strings(list.Active)
	sort.Strings(list.Inactive)
	return list, nil
}

// JoinSession registers a player and returns the new player id.
func (s *SessionService) JoinSession(_ context.Context, sessionID, name string) (string, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	player, err := session.Join(name)
	if err != nil {
		return "", err
	}
	s.sessions.BindPlayer(player.ID, sessionID)
	return player.ID, nil
}

// GetPlayerStatus returns the phase and question index seen by a player.
func (s *SessionService) GetPlayerStatus(_ context.Context, playerID string) (domain.PlayerStatus, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.PlayerStatus{}, err
	}
	return session.PlayerStatus(playerID)
}

// GetCurrentQuestion returns the player view of the current question.
func (s *SessionService) GetCurrentQuestion(_ context.Context, playerID string, position int) (domain.QuestionView, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.QuestionView{}, err
	}
	return session.Question(playerID, position)
}

// SubmitAnswer records a player's answer for the open question.
func (s *SessionService) SubmitAnswer(_ context.Context, playerID string, position int, answerIDs []string) error {
	session, err := s.playerSession(playerID)
	if err != nil {
		return err
	}
	return session.Submit(playerID, position, answerIDs)
}

// GetQuestionResult returns the statistics of a closed question.
func (s *SessionService) GetQuestionResult(_ context.Context, playerID string, position int) (domain.QuestionResult, error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	return session.QuestionResult(playerID, position)
}

// GetFinalResults returns the ranked leaderboard of a finished session.
// Sessions unknown to this process are looked up in the result store.
func (s *SessionService) GetFinalResults(ctx context.Context, host, sessionID string) (domain.SessionResult, error) {
	if session, ok := s.sessions.Get(sessionID); ok {
		if session.OwnerID() != host {
			return domain.SessionResult{}, domain.ErrNotOwner
		}
		return session.FinalResult()
	}
	if s.results == nil {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}

	result, err := s.results.GetResult(ctx, sessionID)
	if errors.Is(err, domain.ErrResultNotFound) {
		return domain.SessionResult{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("load session result: %w", err)
	}
	if _, err := s.ownedQuiz(ctx, result.QuizID, host); err != nil {
		return domain.SessionResult{}, err
	}
	return result, nil
}

// GetFinalResultsCSV returns the final ranking as CSV-ready rows.
func (s *SessionService) GetFinalResultsCSV(ctx context.Context, host, sessionID string) ([][]string, error) {
	result, err := s.GetFinalResults(ctx, host, sessionID)
	if err != nil {
		return nil, err
	}
	return ResultRows(result), nil
}

// Subscribe returns a channel of session events for a player's session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *SessionService) Subscribe(_ context.Context, playerID string) (<-chan domain.SessionEvent, func(), error) {
	session, err := s.playerSession(playerID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := session.Subscribe()
	return ch, cancel, nil
}

func (s *SessionService) ownedQuiz(ctx context.Context, quizID, host string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.OwnerID != host {
		return domain.Quiz{}, domain.ErrNotOwner
	}
	return quiz, nil
}

func (s *SessionService) ownedSession(sessionID, host string) (*Session, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.OwnerID() != host {
		return nil, domain.ErrNotOwner
	}
	return session, nil
}

func (s *SessionService) playerSession(playerID string) (*Session, error) {
	session, ok := s.sessions.GetByPlayer(playerID)
	if !ok {
		return nil, domain.ErrPlayerNotFound
	}
	return session, nil
}
