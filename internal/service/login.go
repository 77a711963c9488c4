package service

import (
	"context"
	"fmt"

	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
)

// LoginService authenticates against the black-box credential service and
// fires the cart merge with an explicit LoginEvent carrying both owner ids.
type LoginService struct {
	credentials port.CredentialService
	merger      *Merger
}

func NewLoginService(credentials port.CredentialService, merger *Merger) (*LoginService, error) {
	if credentials == nil || merger == nil {
		return nil, fmt.Errorf("login dependencies must not be nil")
	}

	return &LoginService{credentials: credentials, merger: merger}, nil
}

// Login resolves the credentials to an identity, issues a token and merges
// the session's anonymous cart into the account cart. A merge failure is
// returned to the caller for retry; the anonymous cart is only cleared
// after its lines have landed in the account cart, so nothing is lost.
func (s *LoginService) Login(ctx context.Context, sessionID string, credentials domain.Credentials) (string, domain.Identity, error) {
	if sessionID == "" {
		return "", domain.Identity{}, fmt.Errorf("sessionID is empty")
	}

	identity, err := s.credentials.Authenticate(ctx, credentials)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("credentials.Authenticate: %w", err)
	}

	token, err := s.credentials.IssueToken(ctx, identity)
	if err != nil {
		return "", domain.Identity{}, fmt.Errorf("credentials.IssueToken: %w", err)
	}

	event := domain.LoginEvent{AnonymousID: sessionID, AccountID: identity.AccountID}
	if err := s.merger.OnLogin(ctx, event); err != nil {
		return "", domain.Identity{}, fmt.Errorf("merger.OnLogin: %w", err)
	}

	return token, identity, nil
}
