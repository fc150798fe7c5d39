package domain

import "fmt"

// Phase is the position of a session in its lifecycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseQuestionCountdown
	PhaseQuestionOpen
	PhaseQuestionClose
	PhaseAnswerShow
	PhaseFinalResults
	PhaseEnd
)

var phaseToString = map[Phase]string{
	PhaseLobby:             "LOBBY",
	PhaseQuestionCountdown: "QUESTION_COUNTDOWN",
	PhaseQuestionOpen:      "QUESTION_OPEN",
	PhaseQuestionClose:     "QUESTION_CLOSE",
	PhaseAnswerShow:        "ANSWER_SHOW",
	PhaseFinalResults:      "FINAL_RESULTS",
	PhaseEnd:               "END",
}

func (p Phase) String() string {
	if s, ok := phaseToString[p]; ok {
		return s
	}
	return "UNKNOWN"
}

// Terminal reports whether no further transition may leave p.
func (p Phase) Terminal() bool {
	return p == PhaseEnd
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for phase, s := range phaseToString {
		if s == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Action is a host command applied to a session.
type Action string

const (
	ActionNextQuestion     Action = "NEXT_QUESTION"
	ActionFinishCountdown  Action = "FINISH_COUNTDOWN"
	ActionGoToAnswer       Action = "GO_TO_ANSWER"
	ActionGoToFinalResults Action = "GO_TO_FINAL_RESULTS"
	ActionEnd              Action = "END"
)

// ParseAction validates a raw action name.
func ParseAction(raw string) (Action, error) {
	switch a := Action(raw); a {
	case ActionNextQuestion, ActionFinishCountdown, ActionGoToAnswer, ActionGoToFinalResults, ActionEnd:
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, raw)
}
