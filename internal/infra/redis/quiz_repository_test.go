package redis

import (
	"context"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	got, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:quiz-1:snapshot") {
		t.Fatalf("expected snapshot key to be set")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if diff := cmp.Diff(got, cached); diff != "" {
		t.Fatalf("cached snapshot differs (-loaded +cached):\n%s", diff)
	}

	// Once the snapshot expires the loader is consulted again.
	mr.FastForward(2 * time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get expired quiz: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:      "quiz-1",
		OwnerID: "host-1",
		Name:    "Arithmetic",
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
