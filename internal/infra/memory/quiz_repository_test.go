package memory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}

	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 3: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after expiry, loader calls %d", loader.calls.Load())
	}
}

func TestQuizRepositoryReturnsPrivateCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)

	first, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	first.Questions[0].Answers[0].Text = "edited"

	second, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if second.Questions[0].Answers[0].Text != "3" {
		t.Fatalf("cached quiz mutated through caller copy: %q", second.Questions[0].Answers[0].Text)
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	_, err := repo.GetQuiz(context.Background(), "missing")
	if !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls atomic.Int32
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls.Add(1)
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Questions: []domain.Question{
			{
				ID:       "q1",
				Text:     "What is 2 + 2?",
				Duration: 10,
				Points:   5,
				Answers: []domain.Answer{
					{ID: "a1", Text: "3", Correct: false},
					{ID: "a2", Text: "4", Correct: true},
				},
			},
		},
	}
}
