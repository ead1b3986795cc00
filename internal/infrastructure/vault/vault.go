// Package vault implements the credential vault: OAuth tokens encrypted at
// rest with AES-256-GCM under a per-tenant key derived via HKDF from a single
// master key. Callers only ever hold opaque references; plaintext is
// reassembled exclusively inside this package.
package vault

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/adhub/backend/internal/domain/integration"
)

// ErrInvalidMasterKey is returned when the configured master key is unusable
var ErrInvalidMasterKey = errors.New("vault: master key must be at least 32 bytes")

const derivedKeySize = 32

// CredentialRecord is the persisted, encrypted form of an OAuth token
type CredentialRecord struct {
	Ref           uuid.UUID
	TenantID      uuid.UUID
	IntegrationID uuid.UUID
	// Ciphertext is base64(nonce || aes-gcm sealed token JSON)
	Ciphertext string
	Revoked    bool
}

// CredentialStore persists encrypted credential records
type CredentialStore interface {
	Save(ctx context.Context, record *CredentialRecord) error
	FindByRef(ctx context.Context, ref uuid.UUID) (*CredentialRecord, error)
	// Destroy removes the ciphertext irreversibly
	Destroy(ctx context.Context, ref uuid.UUID) error
}

// Vault implements integration.CredentialVault
type Vault struct {
	masterKey []byte
	store     CredentialStore
}

// New creates a Vault over the given store. The master key must be at least
// 32 bytes; it is stretched per tenant with HKDF-SHA256 so a leaked tenant
// key cannot decrypt another tenant's records.
func New(masterKey []byte, store CredentialStore) (*Vault, error) {
	if len(masterKey) < derivedKeySize {
		return nil, ErrInvalidMasterKey
	}
	return &Vault{masterKey: masterKey, store: store}, nil
}

// Store encrypts and persists the token, returning an opaque reference
func (v *Vault) Store(ctx context.Context, tenantID, integrationID uuid.UUID, token *integration.OAuthToken) (uuid.UUID, error) {
	plaintext, err := json.Marshal(token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("vault: marshal token: %w", err)
	}

	ciphertext, err := v.seal(tenantID, plaintext)
	if err != nil {
		return uuid.Nil, err
	}

	record := &CredentialRecord{
		Ref:           uuid.New(),
		TenantID:      tenantID,
		IntegrationID: integrationID,
		Ciphertext:    ciphertext,
	}
	if err := v.store.Save(ctx, record); err != nil {
		return uuid.Nil, err
	}
	return record.Ref, nil
}

// Fetch decrypts and returns the token behind ref
func (v *Vault) Fetch(ctx context.Context, tenantID uuid.UUID, ref uuid.UUID) (*integration.OAuthToken, error) {
	record, err := v.store.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if record.TenantID != tenantID {
		return nil, integration.ErrCredentialAccessDenied
	}
	if record.Revoked {
		return nil, integration.ErrCredentialRevoked
	}

	plaintext, err := v.open(tenantID, record.Ciphertext)
	if err != nil {
		return nil, err
	}

	var token integration.OAuthToken
	if err := json.Unmarshal(plaintext, &token); err != nil {
		return nil, fmt.Errorf("vault: unmarshal token: %w", err)
	}
	return &token, nil
}

// Revoke irreversibly destroys the local ciphertext
func (v *Vault) Revoke(ctx context.Context, tenantID uuid.UUID, ref uuid.UUID) error {
	record, err := v.store.FindByRef(ctx, ref)
	if err != nil {
		return err
	}
	if record.TenantID != tenantID {
		return integration.ErrCredentialAccessDenied
	}
	return v.store.Destroy(ctx, ref)
}

// tenantKey derives the per-tenant encryption key
func (v *Vault) tenantKey(tenantID uuid.UUID) ([]byte, error) {
	kdf := hkdf.New(sha256.New, v.masterKey, tenantID[:], []byte("adhub/credential-vault/v1"))
	key := make([]byte, derivedKeySize)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: derive tenant key: %w", err)
	}
	return key, nil
}

// seal encrypts plaintext for a tenant and encodes it for storage
func (v *Vault) seal(tenantID uuid.UUID, plaintext []byte) (string, error) {
	key, err := v.tenantKey(tenantID)
	if err != nil {
		return "", err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("vault: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("vault: init gcm: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, tenantID[:])
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open decodes and decrypts a stored ciphertext for a tenant
func (v *Vault) open(tenantID uuid.UUID, ciphertext string) ([]byte, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("vault: decode ciphertext: %w", err)
	}

	key, err := v.tenantKey(tenantID)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, errors.New("vault: ciphertext too short")
	}

	nonce, body := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, body, tenantID[:])
	if err != nil {
		return nil, fmt.Errorf("vault: decrypt: %w", err)
	}
	return plaintext, nil
}

// Ensure Vault implements the domain port
var _ integration.CredentialVault = (*Vault)(nil)
