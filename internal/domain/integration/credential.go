package integration

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Credential Vault Errors
// ---------------------------------------------------------------------------

var (
	ErrCredentialNotFound     = errors.New("integration: credential not found")
	ErrCredentialAccessDenied = errors.New("integration: credential access denied")
	ErrCredentialRevoked      = errors.New("integration: credential has been revoked")
)

// ---------------------------------------------------------------------------
// CredentialVault Port
// ---------------------------------------------------------------------------

// CredentialVault stores OAuth tokens encrypted at rest and hands back opaque
// references. Only the token manager is wired to a vault instance; every other
// component works with the reference alone.
type CredentialVault interface {
	// Store encrypts and persists the token, returning an opaque reference.
	// Storing against an existing reference overwrites the ciphertext.
	Store(ctx context.Context, tenantID, integrationID uuid.UUID, token *OAuthToken) (uuid.UUID, error)

	// Fetch decrypts and returns the token behind ref.
	// Returns ErrCredentialNotFound for unknown references and
	// ErrCredentialAccessDenied when the tenant does not own the record.
	Fetch(ctx context.Context, tenantID uuid.UUID, ref uuid.UUID) (*OAuthToken, error)

	// Revoke irreversibly destroys the local ciphertext. Must be called
	// before the owning integration is hard-deleted.
	Revoke(ctx context.Context, tenantID uuid.UUID, ref uuid.UUID) error
}
