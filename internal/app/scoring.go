package app

import (
	"math"
	"sort"

	"quiz-session-service/internal/domain"
)

// scoreQuestion awards points to the correct submissions of a closed
// question. Correct submitters are ranked by elapsed time, earliest first,
// with intake order breaking ties; rank k earns points/k.
func scoreQuestion(q domain.Question, subs map[string]domain.Submission) map[string]domain.QuestionAward {
	correct := make([]domain.Submission, 0, len(subs))
	for _, sub := range subs {
		if isCorrect(q, sub.AnswerIDs) {
			correct = append(correct, sub)
		}
	}
	sort.Slice(correct, func(i, j int) bool {
		if correct[i].Elapsed != correct[j].Elapsed {
			return correct[i].Elapsed < correct[j].Elapsed
		}
		return correct[i].Seq < correct[j].Seq
	})

	awards := make(map[string]domain.QuestionAward, len(subs))
	for playerID := range subs {
		awards[playerID] = domain.QuestionAward{}
	}
	for i, sub := range correct {
		rank := i + 1
		awards[sub.PlayerID] = domain.QuestionAward{Score: rankAward(q.Points, rank), Rank: rank}
	}
	return awards
}

// isCorrect reports whether answerIDs is exactly the set of correct answers.
func isCorrect(q domain.Question, answerIDs []string) bool {
	want := q.CorrectAnswerIDs()
	if len(want) != len(answerIDs) {
		return false
	}
	chosen := make(map[string]struct{}, len(answerIDs))
	for _, id := range answerIDs {
		chosen[id] = struct{}{}
	}
	for _, id := range want {
		if _, ok := chosen[id]; !ok {
			return false
		}
	}
	return true
}

// rankAward divides points by rank, rounded half away from zero to one
// decimal place.
func rankAward(points, rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return roundTenth(float64(points) / float64(rank))
}

// roundTenth rounds v half away from zero to one decimal place. Totals are
// re-rounded after every addition so equal scores compare equal.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
