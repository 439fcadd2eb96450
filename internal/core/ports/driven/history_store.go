package driven

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// ChatHistoryStore is the append-only log of question/answer turns,
// keyed by user and category.
type ChatHistoryStore interface {
	// Append stores a turn
	Append(ctx context.Context, turn *domain.ChatTurn) error

	// List returns the most recent turns of a user in a category,
	// oldest first. limit <= 0 means no limit.
	List(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error)

	// Ping checks if the history backend is healthy
	Ping(ctx context.Context) error
}
