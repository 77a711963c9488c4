package port

import (
	"context"

	"github.com/kartshop/storefront/internal/domain"
)

// CredentialService is the black-box authentication provider. Token
// issuance and verification mechanics live behind it; this module only
// consumes resolved identities.
type CredentialService interface {
	Authenticate(ctx context.Context, credentials domain.Credentials) (domain.Identity, error)
	IssueToken(ctx context.Context, identity domain.Identity) (string, error)
	VerifyToken(ctx context.Context, token string) (domain.Identity, error)
}
