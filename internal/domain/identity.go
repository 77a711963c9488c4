package domain

// Identity is a resolved, authenticated account.
type Identity struct {
	AccountID string
}

type Credentials struct {
	Email    string
	Password string
}

// LoginEvent carries the two cart owner ids involved in a login:
// the pre-login anonymous session and the post-login account.
// It is the explicit contract between the credential service and the
// cart merge engine.
type LoginEvent struct {
	AnonymousID string
	AccountID   string
}
