package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/datachat/datachat/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

// EnsureSchema creates the turn table when absent. A single table does not
// warrant a versioned migration chain.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	query := `
CREATE TABLE IF NOT EXISTS conversation_turn (
	turn_id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	question TEXT NOT NULL,
	generated_sql TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure history schema: %w", err)
	}
	index := `
CREATE INDEX IF NOT EXISTS conversation_turn_conversation_idx
ON conversation_turn (conversation_id, created_at)`
	if _, err := r.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("ensure history index: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, turn history.Turn) error {
	query := `
INSERT INTO conversation_turn (turn_id, conversation_id, question, generated_sql, status, answer, duration_ms, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if _, err := r.db.ExecContext(ctx, query,
		turn.ID,
		turn.ConversationID,
		turn.Question,
		turn.SQL,
		turn.Status,
		turn.Answer,
		turn.Duration.Milliseconds(),
		createdAt,
	); err != nil {
		return fmt.Errorf("record turn: %w", err)
	}
	return nil
}

func (r *Repository) ListTurns(ctx context.Context, conversationID string) ([]history.Turn, error) {
	query := `
SELECT turn_id, conversation_id, question, generated_sql, status, answer, duration_ms, created_at
FROM conversation_turn
WHERE conversation_id = $1
ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	turns := make([]history.Turn, 0)
	for rows.Next() {
		var turn history.Turn
		var durationMs int64
		if err := rows.Scan(
			&turn.ID,
			&turn.ConversationID,
			&turn.Question,
			&turn.SQL,
			&turn.Status,
			&turn.Answer,
			&durationMs,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		turn.Duration = time.Duration(durationMs) * time.Millisecond
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}
	if len(turns) == 0 {
		return nil, history.ErrNotFound
	}
	return turns, nil
}
