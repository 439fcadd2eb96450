package services

import (
	"strings"
	"unicode/utf8"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// ContextAssembler renders retrieved chunks into prompt context.
type ContextAssembler struct {
	budget int
}

// NewContextAssembler creates an assembler capped at budget runes. The
// truncation marker comes on top of the budget.
func NewContextAssembler(budget int) *ContextAssembler {
	if budget <= 0 {
		budget = domain.DefaultRetrievalSettings().ContextBudget
	}
	return &ContextAssembler{budget: budget}
}

// Build joins "SOURCE: {document}\n{text}" blocks with domain.ContextSeparator.
// No chunks yields domain.NoRelevantData. A context longer than the budget
// is cut and ends with domain.ContextTruncatedMarker.
func (a *ContextAssembler) Build(chunks []*domain.Chunk) string {
	if len(chunks) == 0 {
		return domain.NoRelevantData
	}

	blocks := make([]string, len(chunks))
	for i, c := range chunks {
		blocks[i] = "SOURCE: " + c.DocumentID + "\n" + c.Content
	}
	joined := strings.Join(blocks, domain.ContextSeparator)

	if utf8.RuneCountInString(joined) <= a.budget {
		return joined
	}

	// The line break before the marker counts against the budget.
	runes := []rune(joined)
	return string(runes[:a.budget-1]) + "\n" + domain.ContextTruncatedMarker
}
