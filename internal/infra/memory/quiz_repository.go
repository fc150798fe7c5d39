package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-session-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuizLoader fetches quiz content from the authoring store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quiz snapshots with TTL to avoid repeated loader hits.
// Concurrent misses for the same quiz share one load.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

// GetQuiz returns a private copy of the quiz; callers may keep it as an
// immutable snapshot.
func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz.Clone(), nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz).Clone(), nil
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return entry.quiz, true
}

func (r *QuizRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter spreads expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuizLoader is a loader backed by an in-memory map (tests/demos).
type StaticQuizLoader struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	l := &StaticQuizLoader{quizzes: make(map[string]domain.Quiz, len(quizzes))}
	for id, quiz := range quizzes {
		l.quizzes[id] = quiz.Clone()
	}
	return l
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz.Clone(), nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// Put stores or replaces a quiz, as an authoring edit would.
func (l *StaticQuizLoader) Put(quiz domain.Quiz) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.quizzes[quiz.ID] = quiz.Clone()
}
