package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
)

// ErrNoRefreshToken indicates the provider completed a code exchange without
// granting a refresh token. The provider must be configured for offline
// access; without a refresh token the credential cannot outlive its first
// expiry, so the exchange is treated as failed.
var ErrNoRefreshToken = errors.New("oauth exchange granted no refresh token")

// OAuthExchanger defines the driven port for the OAuth2 provider.
type OAuthExchanger interface {
	// Exchange trades an authorization code for a fresh credential.
	// Returns ErrNoRefreshToken when the grant carries no refresh token.
	Exchange(ctx context.Context, code string) (*model.Credential, error)

	// Refresh obtains a new access token using the refresh-token grant.
	Refresh(ctx context.Context, refreshToken string) (*model.Credential, error)
}
