package app

import (
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
)

// Session is one timed run of a quiz snapshot.
//
// Host actions, player operations and timer expiry are serialized on mu.
type Session struct {
	id        string
	quiz      domain.Quiz
	autoStart int
	countdown time.Duration
	clock     clock.Clock
	logger    *slog.Logger

	mu          sync.Mutex
	phase       domain.Phase
	index       int
	openedAt    time.Time
	players     []*domain.Player
	byID        map[string]*domain.Player
	byName      map[string]*domain.Player
	submissions []map[string]domain.Submission
	awards      []map[string]domain.QuestionAward
	closed      []bool
	timer       phaseTimer
	final       *domain.SessionResult
	rnd         *rand.Rand
	subscribers map[chan domain.SessionEvent]struct{}
}

// NewSession builds a session in LOBBY over a private copy of quiz.
func NewSession(id string, quiz domain.Quiz, autoStart int, opts Options) *Session {
	opts = opts.withDefaults()
	snapshot := quiz.Clone()
	n := len(snapshot.Questions)

	s := &Session{
		id:          id,
		quiz:        snapshot,
		autoStart:   autoStart,
		countdown:   opts.Countdown,
		clock:       opts.Clock,
		phase:       domain.PhaseLobby,
		index:       -1,
		byID:        make(map[string]*domain.Player),
		byName:      make(map[string]*domain.Player),
		submissions: make([]map[string]domain.Submission, n),
		awards:      make([]map[string]domain.QuestionAward, n),
		closed:      make([]bool, n),
		rnd:         rand.New(rand.NewSource(opts.Clock.Now().UnixNano())),
		subscribers: make(map[chan domain.SessionEvent]struct{}),
	}
	for i := range s.submissions {
		s.submissions[i] = make(map[string]domain.Submission)
	}
	s.logger = opts.Logger.With(slog.String("session_id", id), slog.String("quiz_id", quiz.ID))
	return s
}

// ID returns the session unique id.
func (s *Session) ID() string { return s.id }

// QuizID returns the id of the quiz the session was started from.
func (s *Session) QuizID() string { return s.quiz.ID }

// OwnerID returns the host owning the quiz snapshot.
func (s *Session) OwnerID() string { return s.quiz.OwnerID }

// Phase returns the current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Active reports whether the session has not reached END.
func (s *Session) Active() bool {
	return !s.Phase().Terminal()
}

// Apply runs a host action through the state machine and returns the
// resulting phase.
func (s *Session) Apply(action domain.Action) (domain.Phase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.applyLocked(action, "action")
	return s.phase, err
}

func (s *Session) applyLocked(action domain.Action, trigger string) error {
	from := s.phase
	conflict := &domain.StateConflictError{Phase: from, Op: string(action)}

	switch action {
	case domain.ActionNextQuestion:
		switch from {
		case domain.PhaseLobby, domain.PhaseQuestionClose, domain.PhaseAnswerShow:
		default:
			return conflict
		}
		if s.index+1 >= len(s.quiz.Questions) {
			return domain.ErrNoMoreQuestions
		}
		s.leaveLocked()
		s.index++
		s.enterLocked(domain.PhaseQuestionCountdown)
	case domain.ActionFinishCountdown:
		if from != domain.PhaseQuestionCountdown {
			return conflict
		}
		s.leaveLocked()
		s.enterLocked(domain.PhaseQuestionOpen)
	case domain.ActionGoToAnswer:
		if from != domain.PhaseQuestionOpen && from != domain.PhaseQuestionClose {
			return conflict
		}
		s.leaveLocked()
		s.enterLocked(domain.PhaseAnswerShow)
	case domain.ActionGoToFinalResults:
		if from != domain.PhaseQuestionClose && from != domain.PhaseAnswerShow {
			return conflict
		}
		s.leaveLocked()
		s.enterLocked(domain.PhaseFinalResults)
	case domain.ActionEnd:
		if from.Terminal() {
			return conflict
		}
		s.leaveLocked()
		s.enterLocked(domain.PhaseEnd)
	default:
		return domain.ErrUnknownAction
	}

	s.logger.Info("session transition",
		slog.String("from", from.String()),
		slog.String("to", s.phase.String()),
		slog.String("action", string(action)),
		slog.String("trigger", trigger))
	s.broadcastLocked()
	return nil
}

// leaveLocked runs the exit side effects of the current phase. Leaving
// QUESTION_OPEN by any route closes and scores the question.
func (s *Session) leaveLocked() {
	s.cancelTimerLocked()
	if s.phase == domain.PhaseQuestionOpen {
		s.closeQuestionLocked()
	}
}

func (s *Session) enterLocked(phase domain.Phase) {
	s.phase = phase
	switch phase {
	case domain.PhaseQuestionCountdown:
		s.armTimerLocked(phase, s.countdown)
	case domain.PhaseQuestionOpen:
		s.openedAt = s.clock.Now()
		s.armTimerLocked(phase, questionDuration(s.quiz.Questions[s.index]))
	case domain.PhaseFinalResults:
		result := s.resultLocked()
		s.final = &result
	}
}

// expire is the deferred timer callback. It is a no-op unless the timer is
// still the armed one and the session is still in the phase it was armed for.
func (s *Session) expire(seq uint64, phase domain.Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.timer.current(seq) || s.phase != phase {
		s.logger.Debug("stale timer discarded",
			slog.String("armed_phase", phase.String()),
			slog.String("phase", s.phase.String()))
		return
	}

	from := s.phase
	s.leaveLocked()
	switch from {
	case domain.PhaseQuestionCountdown:
		s.enterLocked(domain.PhaseQuestionOpen)
	case domain.PhaseQuestionOpen:
		s.enterLocked(domain.PhaseQuestionClose)
	}

	s.logger.Info("session transition",
		slog.String("from", from.String()),
		slog.String("to", s.phase.String()),
		slog.String("trigger", "timer"))
	s.broadcastLocked()
}

func (s *Session) closeQuestionLocked() {
	pos := s.index
	if s.closed[pos] {
		return
	}
	awards := scoreQuestion(s.quiz.Questions[pos], s.submissions[pos])
	for playerID, award := range awards {
		if p, ok := s.byID[playerID]; ok {
			p.Score = roundTenth(p.Score + award.Score)
		}
	}
	s.awards[pos] = awards
	s.closed[pos] = true
}

// Join registers a player while the session is in LOBBY. An empty name is
// replaced by a generated one.
func (s *Session) Join(name string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != domain.PhaseLobby {
		return domain.Player{}, &domain.StateConflictError{Phase: s.phase, Op: "join"}
	}
	if name == "" {
		name = s.uniqueNameLocked()
	} else if _, taken := s.byName[name]; taken {
		return domain.Player{}, domain.ErrNameTaken
	}

	player := &domain.Player{ID: uuid.NewString(), Name: name}
	s.players = append(s.players, player)
	s.byID[player.ID] = player
	s.byName[player.Name] = player

	s.logger.Info("player joined", slog.String("player_id", player.ID), slog.Int("players", len(s.players)))
	s.broadcastLocked()

	if s.autoStart > 0 && len(s.players) == s.autoStart {
		if err := s.applyLocked(domain.ActionNextQuestion, "auto start"); err != nil {
			s.logger.Warn("lobby auto start failed", slog.Any("error", err))
		}
	}
	return *player, nil
}

func (s *Session) uniqueNameLocked() string {
	for {
		name := generateName(s.rnd)
		if _, taken := s.byName[name]; !taken {
			return name
		}
	}
}

// Submit records a player's answer for the open question. The first
// submission per player and question wins.
func (s *Session) Submit(playerID string, position int, answerIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[playerID]; !ok {
		return domain.ErrPlayerNotFound
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.ErrQuestionNotFound
	}
	if s.phase != domain.PhaseQuestionOpen {
		return &domain.StateConflictError{Phase: s.phase, Op: "submit answer"}
	}
	if position != s.index {
		return domain.ErrQuestionNotCurrent
	}
	if err := validateAnswerIDs(s.quiz.Questions[position], answerIDs); err != nil {
		return err
	}
	subs := s.submissions[position]
	if _, ok := subs[playerID]; ok {
		return domain.ErrAlreadyAnswered
	}

	subs[playerID] = domain.Submission{
		PlayerID:  playerID,
		Position:  position,
		AnswerIDs: append([]string(nil), answerIDs...),
		Elapsed:   s.clock.Now().Sub(s.openedAt),
		Seq:       len(subs),
	}
	return nil
}

func validateAnswerIDs(q domain.Question, answerIDs []string) error {
	if len(answerIDs) == 0 {
		return domain.ErrEmptySubmission
	}
	seen := make(map[string]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		if _, dup := seen[id]; dup {
			return domain.ErrDuplicateAnswer
		}
		seen[id] = struct{}{}
		if !q.HasAnswer(id) {
			return domain.ErrAnswerNotFound
		}
	}
	return nil
}

// Status returns the host view of the session.
func (s *Session) Status() domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.players))
	for _, p := range s.players {
		names = append(names, p.Name)
	}
	sort.Strings(names)

	results := make([]domain.QuestionResult, 0, len(s.closed))
	for pos, closed := range s.closed {
		if closed {
			results = append(results, s.questionResultLocked(pos))
		}
	}

	return domain.SessionStatus{
		SessionID:     s.id,
		QuizID:        s.quiz.ID,
		Phase:         s.phase,
		QuestionIndex: s.index,
		NumQuestions:  len(s.quiz.Questions),
		AutoStart:     s.autoStart,
		Players:       names,
		Results:       results,
	}
}

// PlayerStatus returns the player view of the session.
func (s *Session) PlayerStatus(playerID string) (domain.PlayerStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[playerID]; !ok {
		return domain.PlayerStatus{}, domain.ErrPlayerNotFound
	}
	return domain.PlayerStatus{
		Phase:         s.phase,
		QuestionIndex: s.index,
		NumQuestions:  len(s.quiz.Questions),
	}, nil
}

// Question returns the current question without correctness flags.
func (s *Session) Question(playerID string, position int) (domain.QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[playerID]; !ok {
		return domain.QuestionView{}, domain.ErrPlayerNotFound
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.QuestionView{}, domain.ErrQuestionNotFound
	}
	switch s.phase {
	case domain.PhaseQuestionOpen, domain.PhaseQuestionClose, domain.PhaseAnswerShow:
	default:
		return domain.QuestionView{}, &domain.StateConflictError{Phase: s.phase, Op: "view question"}
	}
	if position != s.index {
		return domain.QuestionView{}, domain.ErrQuestionNotCurrent
	}

	q := s.quiz.Questions[position]
	answers := make([]domain.AnswerView, 0, len(q.Answers))
	for _, a := range q.Answers {
		answers = append(answers, domain.AnswerView{ID: a.ID, Text: a.Text})
	}
	return domain.QuestionView{
		ID:           q.ID,
		Position:     position,
		NumQuestions: len(s.quiz.Questions),
		Text:         q.Text,
		Duration:     q.Duration,
		Points:       q.Points,
		Answers:      answers,
	}, nil
}

// QuestionResult returns statistics for a question that has been closed.
func (s *Session) QuestionResult(playerID string, position int) (domain.QuestionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[playerID]; !ok {
		return domain.QuestionResult{}, domain.ErrPlayerNotFound
	}
	if position < 0 || position >= len(s.quiz.Questions) {
		return domain.QuestionResult{}, domain.ErrQuestionNotFound
	}
	if !s.closed[position] {
		return domain.QuestionResult{}, &domain.StateConflictError{Phase: s.phase, Op: "question results"}
	}
	return s.questionResultLocked(position), nil
}

func (s *Session) questionResultLocked(pos int) domain.QuestionResult {
	return questionResult(pos, s.quiz.Questions[pos], s.submissions[pos], s.players)
}

// FinalResult returns the ranking produced on entry to FINAL_RESULTS.
func (s *Session) FinalResult() (domain.SessionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.final == nil || (s.phase != domain.PhaseFinalResults && s.phase != domain.PhaseEnd) {
		return domain.SessionResult{}, &domain.StateConflictError{Phase: s.phase, Op: "final results"}
	}
	return *s.final, nil
}

func (s *Session) resultLocked() domain.SessionResult {
	questions := make([]domain.QuestionResult, 0, len(s.quiz.Questions))
	for pos := range s.quiz.Questions {
		questions = append(questions, s.questionResultLocked(pos))
	}
	return domain.SessionResult{
		SessionID:   s.id,
		QuizID:      s.quiz.ID,
		Ranking:     rankPlayers(s.players, s.awards),
		Questions:   questions,
		FinalizedAt: s.clock.Now(),
	}
}

// Subscribe returns a channel receiving session events, starting with the
// current snapshot. The caller must invoke the returned cancel function.
func (s *Session) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	ch <- s.eventLocked()
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) broadcastLocked() {
	ev := s.eventLocked()
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest event so a slow subscriber never blocks the session.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (s *Session) eventLocked() domain.SessionEvent {
	return domain.SessionEvent{
		SessionID:     s.id,
		Phase:         s.phase,
		QuestionIndex: s.index,
		Players:       len(s.players),
		At:            s.clock.Now(),
	}
}
