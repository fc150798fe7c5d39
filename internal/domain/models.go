package domain

import "time"

// Answer is one selectable option of a question.
type Answer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Question models a timed question with one or more correct answers.
type Question struct {
	ID       string   `json:"id"`
	Text     string   `json:"text"`
	Duration int      `json:"duration"` // seconds the answer window stays open
	Points   int      `json:"points"`
	Answers  []Answer `json:"answers"`
}

// CorrectAnswerIDs returns the ids flagged correct, in authoring order.
func (q Question) CorrectAnswerIDs() []string {
	ids := make([]string, 0, len(q.Answers))
	for _, a := range q.Answers {
		if a.Correct {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// HasAnswer reports whether id belongs to q.
func (q Question) HasAnswer(id string) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Quiz is an ordered question bank owned by a host.
type Quiz struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"ownerId"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Clone returns a deep copy so a running session is unaffected by later edits.
func (q Quiz) Clone() Quiz {
	out := q
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Answers = append([]Answer(nil), question.Answers...)
		out.Questions[i] = question
	}
	return out
}

// Player is a participant joined to one session.
type Player struct {
	ID    string
	Name  string
	Score float64
}

// Submission is one player's recorded choice for one question.
type Submission struct {
	PlayerID  string
	Position  int
	AnswerIDs []string
	Elapsed   time.Duration // since the question opened
	Seq       int           // intake order within the question
}

// AnswerView is an answer stripped of its correctness flag.
type AnswerView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuestionView is what players see of the current question.
type QuestionView struct {
	ID           string       `json:"id"`
	Position     int          `json:"position"`
	NumQuestions int          `json:"numQuestions"`
	Text         string       `json:"text"`
	Duration     int          `json:"duration"`
	Points       int          `json:"points"`
	Answers      []AnswerView `json:"answers"`
}

// AnswerSelection lists the players who picked one correct answer.
type AnswerSelection struct {
	AnswerID    string   `json:"answerId"`
	PlayerNames []string `json:"playerNames"`
}

// QuestionResult summarizes a closed question.
type QuestionResult struct {
	QuestionID        string            `json:"questionId"`
	Position          int               `json:"position"`
	PercentCorrect    int               `json:"percentCorrect"`
	AverageAnswerTime int               `json:"averageAnswerTime"` // seconds
	PlayersCorrect    []string          `json:"playersCorrect"`
	CorrectSelections []AnswerSelection `json:"correctSelections"`
}

// QuestionAward is a player's outcome on one question.
type QuestionAward struct {
	Score float64 `json:"score"`
	Rank  int     `json:"rank"` // among correct submitters, 0 when not correct
}

// LeaderboardEntry is one ranked player.
type LeaderboardEntry struct {
	PlayerID  string          `json:"playerId"`
	Name      string          `json:"name"`
	Score     float64         `json:"score"`
	Breakdown []QuestionAward `json:"breakdown,omitempty"`
}

// SessionResult is the finalized outcome of a session.
type SessionResult struct {
	SessionID   string             `json:"sessionId"`
	QuizID      string             `json:"quizId"`
	Ranking     []LeaderboardEntry `json:"ranking"`
	Questions   []QuestionResult   `json:"questions"`
	FinalizedAt time.Time          `json:"finalizedAt"`
}

// SessionStatus is the host view of a session.
type SessionStatus struct {
	SessionID     string           `json:"sessionId"`
	QuizID        string           `json:"quizId"`
	Phase         Phase            `json:"phase"`
	QuestionIndex int              `json:"questionIndex"`
	NumQuestions  int              `json:"numQuestions"`
	AutoStart     int              `json:"autoStart"`
	Players       []string         `json:"players"`
	Results       []QuestionResult `json:"results"`
}

// PlayerStatus is the player view of a session.
type PlayerStatus struct {
	Phase         Phase `json:"phase"`
	QuestionIndex int   `json:"questionIndex"`
	NumQuestions  int   `json:"numQuestions"`
}

// SessionList splits a quiz's sessions by liveness.
type SessionList struct {
	Active   []string `json:"active"`
	Inactive []string `json:"inactive"`
}

// SessionEvent is published on every committed join or transition.
type SessionEvent struct {
	SessionID     string    `json:"sessionId"`
	Phase         Phase     `json:"phase"`
	QuestionIndex int       `json:"questionIndex"`
	Players       int       `json:"players"`
	At            time.Time `json:"at"`
}
