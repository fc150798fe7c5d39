package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the session core unwraps to one of these.
var (
	ErrNotFound      = errors.New("not found")
	ErrStateConflict = errors.New("state conflict")
	ErrValidation    = errors.New("validation failed")
	ErrUnauthorized  = errors.New("unauthorized")
)

// Error is a sentinel error tagged with its kind.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

var (
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = newError(ErrNotFound, "quiz session not found")
	// ErrPlayerNotFound is returned when a player id is unknown.
	ErrPlayerNotFound = newError(ErrNotFound, "player not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = newError(ErrNotFound, "quiz not found")
	// ErrQuestionNotFound indicates a question position outside the quiz.
	ErrQuestionNotFound = newError(ErrNotFound, "question not found")
	// ErrAnswerNotFound indicates a submitted answer id foreign to the question.
	ErrAnswerNotFound = newError(ErrNotFound, "answer not found")
	// ErrResultNotFound is returned by result stores holding no entry for a session.
	ErrResultNotFound = newError(ErrNotFound, "session result not found")

	ErrNoQuestions        = newError(ErrValidation, "quiz has no questions")
	ErrAutoStartRange     = newError(ErrValidation, "auto start threshold out of range")
	ErrTooManyActive      = newError(ErrValidation, "too many active sessions for quiz")
	ErrNoMoreQuestions    = newError(ErrValidation, "no further question in quiz")
	ErrNameTaken          = newError(ErrValidation, "player name already taken in session")
	ErrQuestionNotCurrent = newError(ErrValidation, "question is not the current question")
	ErrEmptySubmission    = newError(ErrValidation, "no answer ids submitted")
	ErrDuplicateAnswer    = newError(ErrValidation, "duplicate answer ids submitted")
	ErrAlreadyAnswered    = newError(ErrValidation, "player already answered this question")
	ErrUnknownAction      = newError(ErrValidation, "unknown session action")
	ErrDuplicateSessionID = newError(ErrValidation, "session id already used")
	ErrNotOwner           = newError(ErrUnauthorized, "host does not own this quiz")
	ErrInvalidHostToken   = newError(ErrUnauthorized, "invalid host token")
)

// StateConflictError reports an operation rejected by the current phase.
type StateConflictError struct {
	Phase Phase
	Op    string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("%s not allowed in phase %s", e.Op, e.Phase)
}

func (e *StateConflictError) Unwrap() error { return ErrStateConflict }
