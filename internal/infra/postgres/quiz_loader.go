package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-session-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader reads authored quizzes from the quizzes table. Question content
// lives in a JSONB document; ownership is a column so it can be indexed.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		raw     []byte
		ownerID string
	)
	err := l.pool.QueryRow(ctx, `SELECT owner_id, data FROM quizzes WHERE id=$1`, quizID).Scan(&ownerID, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	quiz.ID = quizID
	quiz.OwnerID = ownerID
	return quiz, nil
}

// SaveQuiz upserts a quiz document. Used by seeding and tests.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO quizzes (id, owner_id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET owner_id = EXCLUDED.owner_id, data = EXCLUDED.data`,
		quiz.ID, quiz.OwnerID, data)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}
