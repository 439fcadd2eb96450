package driven

import "github.com/neoosi/neoosi-core/internal/core/domain"

// AuthAdapter handles token cryptography. Accounts and sessions live in the
// account service; this service verifies tokens it issued.
type AuthAdapter interface {
	// GenerateToken signs claims (used by tooling and tests)
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
