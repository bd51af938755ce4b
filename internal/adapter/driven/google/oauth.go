// Package google implements the OAuthExchanger port against Google's OAuth2
// endpoints using golang.org/x/oauth2.
package google

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ericfisherdev/hubsync/internal/domain/model"
	"github.com/ericfisherdev/hubsync/internal/domain/port/driven"
)

// Scopes requested for the YouTube subscriptions listing.
var scopes = []string{"https://www.googleapis.com/auth/youtube.readonly"}

// Compile-time interface satisfaction check.
var _ driven.OAuthExchanger = (*Exchanger)(nil)

// Exchanger implements the driven.OAuthExchanger port. Offline access is
// requested on every exchange so the provider issues a refresh token.
type Exchanger struct {
	config *oauth2.Config
}

// NewExchanger creates an Exchanger for the given OAuth client. redirectURL
// must match one of the redirect URIs registered with the provider.
func NewExchanger(clientID, clientSecret, redirectURL string) *Exchanger {
	return &Exchanger{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       scopes,
			Endpoint:     google.Endpoint,
		},
	}
}

// NewExchangerWithEndpoint creates an Exchanger against a custom provider
// endpoint. Intended for testing with an httptest server.
func NewExchangerWithEndpoint(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint) *Exchanger {
	e := NewExchanger(clientID, clientSecret, redirectURL)
	e.config.Endpoint = endpoint
	return e
}

// AuthCodeURL returns the provider consent-page URL used in
// re-authentication alerts. The consent prompt is forced so the provider
// re-issues a refresh token even for a previously approved client.
func (e *Exchanger) AuthCodeURL() string {
	return e.config.AuthCodeURL("",
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a fresh credential. The grant
// must carry a refresh token, otherwise the exchange is treated as failed.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*model.Credential, error) {
	token, err := e.config.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	if token.RefreshToken == "" {
		return nil, driven.ErrNoRefreshToken
	}

	return &model.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}, nil
}

// Refresh obtains a new access token using the refresh-token grant. The
// provider may omit the refresh token from the response; the supplied one is
// carried forward in that case.
func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*model.Credential, error) {
	source := e.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh access token: %w", err)
	}

	newRefresh := token.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return &model.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: newRefresh,
		ExpiresAt:    token.Expiry,
	}, nil
}
