package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"quiz-session-service/internal/domain"

	"github.com/uptrace/bun"
)

type sessionResultRow struct {
	bun.BaseModel `bun:"table:session_results"`

	SessionID   string          `bun:"session_id,pk"`
	QuizID      string          `bun:"quiz_id,notnull"`
	Data        json.RawMessage `bun:"data,type:jsonb,notnull"`
	FinalizedAt time.Time       `bun:"finalized_at,notnull"`
}

// ResultStore keeps finalized session results in the session_results table.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) SaveResult(ctx context.Context, result domain.SessionResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	row := &sessionResultRow{
		SessionID:   result.SessionID,
		QuizID:      result.QuizID,
		Data:        data,
		FinalizedAt: result.FinalizedAt,
	}
	_, err = s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("data = EXCLUDED.data").
		Set("finalized_at = EXCLUDED.finalized_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *ResultStore) GetResult(ctx context.Context, sessionID string) (domain.SessionResult, error) {
	row := new(sessionResultRow)
	err := s.db.NewSelect().Model(row).Where("session_id = ?", sessionID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return domain.SessionResult{}, fmt.Errorf("select result: %w", err)
	}
	var result domain.SessionResult
	if err := json.Unmarshal(row.Data, &result); err != nil {
		return domain.SessionResult{}, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, nil
}
