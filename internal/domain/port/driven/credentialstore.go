package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations when
// HUBSYNC_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set HUBSYNC_SECRET_KEY")

// CredentialStore defines the driven port for persisting the single logical
// OAuth credential. The adapter layer is responsible for encrypting token
// material at rest; this interface operates on plaintext values at the
// domain boundary.
type CredentialStore interface {
	// Load retrieves the persisted credential. Returns (nil, nil) when no
	// credential is stored. Returns ErrEncryptionKeyNotSet if the adapter
	// was constructed without an encryption key.
	Load(ctx context.Context) (*model.Credential, error)

	// Save stores or replaces the credential.
	Save(ctx context.Context, cred model.Credential) error

	// Clear removes the stored credential. Clearing an empty store is not
	// an error.
	Clear(ctx context.Context) error
}
