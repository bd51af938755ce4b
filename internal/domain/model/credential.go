package model

import "time"

// Credential is the OAuth access/refresh token pair used to query the
// upstream API. Exactly one logical credential exists at a time; it is
// persisted through the CredentialStore port and cached by the token manager.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token has passed its expiry instant.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
