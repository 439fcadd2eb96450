package postgres

import (
	"context"
	"fmt"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ChatHistoryStore = (*HistoryStore)(nil)

// HistoryStore implements driven.ChatHistoryStore using PostgreSQL
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Append stores a turn
func (s *HistoryStore) Append(ctx context.Context, turn *domain.ChatTurn) error {
	query := `
		INSERT INTO chat_messages (id, user_id, category, question, answer, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.db.ExecContext(ctx, query,
		turn.ID,
		turn.UserID,
		turn.Category,
		turn.Question,
		turn.Answer,
		turn.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}
	return nil
}

// List returns the most recent turns, oldest first
func (s *HistoryStore) List(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error) {
	query := `
		SELECT id, user_id, category, question, answer, created_at
		FROM chat_messages
		WHERE user_id = $1 AND category = $2
		ORDER BY created_at DESC, id DESC
	`
	args := []any{userID, category}
	if limit > 0 {
		query += " LIMIT $3"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var turns []*domain.ChatTurn
	for rows.Next() {
		var turn domain.ChatTurn
		if err := rows.Scan(
			&turn.ID,
			&turn.UserID,
			&turn.Category,
			&turn.Question,
			&turn.Answer,
			&turn.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		turns = append(turns, &turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}

	// Newest first from the query, callers expect oldest first
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// Ping checks if the database is reachable
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
