package app

import (
	"testing"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func TestScoreQuestionRanksCorrectSubmitters(t *testing.T) {
	q := testQuiz().Questions[0] // 9 points, a2 correct
	subs := map[string]domain.Submission{
		"p3": {PlayerID: "p3", AnswerIDs: []string{"a2"}, Elapsed: 3 * time.Second, Seq: 2},
		"p1": {PlayerID: "p1", AnswerIDs: []string{"a2"}, Elapsed: 1 * time.Second, Seq: 0},
		"p2": {PlayerID: "p2", AnswerIDs: []string{"a2"}, Elapsed: 2 * time.Second, Seq: 1},
		"p4": {PlayerID: "p4", AnswerIDs: []string{"a1"}, Elapsed: 500 * time.Millisecond, Seq: 3},
	}

	got := scoreQuestion(q, subs)
	want := map[string]domain.QuestionAward{
		"p1": {Score: 9, Rank: 1},
		"p2": {Score: 4.5, Rank: 2},
		"p3": {Score: 3, Rank: 3},
		"p4": {Score: 0, Rank: 0},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("awards mismatch (-want +got):\n%s", diff)
	}
}

func TestScoreQuestionTieBreaksOnIntakeOrder(t *testing.T) {
	q := testQuiz().Questions[0]
	subs := map[string]domain.Submission{
		"late":  {PlayerID: "late", AnswerIDs: []string{"a2"}, Seq: 1},
		"early": {PlayerID: "early", AnswerIDs: []string{"a2"}, Seq: 0},
	}
	got := scoreQuestion(q, subs)
	if got["early"].Rank != 1 || got["late"].Rank != 2 {
		t.Fatalf("expected intake order to break ties, got %+v", got)
	}
}

func TestIsCorrectRequiresExactSet(t *testing.T) {
	q := testQuiz().Questions[1] // b1 and b3 correct
	cases := []struct {
		answers []string
		want    bool
	}{
		{[]string{"b1", "b3"}, true},
		{[]string{"b3", "b1"}, true},
		{[]string{"b1"}, false},
		{[]string{"b1", "b2", "b3"}, false},
		{[]string{"b2"}, false},
	}
	for _, tc := range cases {
		if got := isCorrect(q, tc.answers); got != tc.want {
			t.Fatalf("isCorrect(%v) = %v, want %v", tc.answers, got, tc.want)
		}
	}
}

func TestRankAwardRounding(t *testing.T) {
	cases := []struct {
		points, rank int
		want         float64
	}{
		{9, 1, 9},
		{9, 2, 4.5},
		{9, 3, 3},
		{10, 3, 3.3},
		{10, 6, 1.7},
		{1, 4, 0.3},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := rankAward(tc.points, tc.rank); got != tc.want {
			t.Fatalf("rankAward(%d, %d) = %v, want %v", tc.points, tc.rank, got, tc.want)
		}
	}
}

func TestRoundTenthCanonicalizesSums(t *testing.T) {
	if got := roundTenth(roundTenth(3.3+3.3) + 3.3); got != 9.9 {
		t.Fatalf("expected 9.9, got %v", got)
	}
	if got := roundTenth(0.1 + 0.2); got != 0.3 {
		t.Fatalf("expected 0.3, got %v", got)
	}
}
