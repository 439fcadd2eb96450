package driving

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// AssistantService answers housing and utility questions
type AssistantService interface {
	// Answer runs the full pipeline for one question. It never fails:
	// backend errors are turned into an apology in the detected language.
	Answer(ctx context.Context, question, userID string) *domain.Answer

	// History returns the stored turns of a user, oldest first
	History(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error)
}
