package driving

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// AuthService verifies bearer tokens issued by the account service
type AuthService interface {
	// ValidateToken validates a JWT token and returns the auth context
	ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error)
}
