// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr  string
	DBPath      string
	CallbackURL string

	HubURL  string
	FeedURL string

	ReconcileInterval time.Duration
	RenewalWindow     time.Duration
	RenewalDelay      time.Duration
	RenewalFallback   time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	OAuthRedirectURL   string

	AlertWebhookURL string

	// SecretKey is the AES-256 key for credential encryption at rest.
	SecretKey []byte
}

// Load reads configuration from environment variables and returns a validated
// Config. Required: HUBSYNC_CALLBACK_URL, HUBSYNC_GOOGLE_CLIENT_ID,
// HUBSYNC_GOOGLE_CLIENT_SECRET, HUBSYNC_ALERT_WEBHOOK_URL, and
// HUBSYNC_SECRET_KEY (64 hex chars, the credential encryption key).
// Optional variables with defaults: HUBSYNC_LISTEN_ADDR (0.0.0.0:8080),
// HUBSYNC_DB_PATH (hubsync.db), HUBSYNC_HUB_URL, HUBSYNC_FEED_URL,
// HUBSYNC_RECONCILE_INTERVAL (1h), HUBSYNC_RENEWAL_WINDOW (24h),
// HUBSYNC_RENEWAL_DELAY (1h), HUBSYNC_RENEWAL_FALLBACK (24h),
// HUBSYNC_OAUTH_REDIRECT_URL (derived from the callback URL).
func Load() (*Config, error) {
	callbackURL := os.Getenv("HUBSYNC_CALLBACK_URL")
	if callbackURL == "" {
		return nil, fmt.Errorf("HUBSYNC_CALLBACK_URL is required")
	}
	parsedCallback, err := url.Parse(callbackURL)
	if err != nil || parsedCallback.Host == "" {
		return nil, fmt.Errorf("HUBSYNC_CALLBACK_URL %q is not a valid URL", callbackURL)
	}

	clientID := os.Getenv("HUBSYNC_GOOGLE_CLIENT_ID")
	if clientID == "" {
		return nil, fmt.Errorf("HUBSYNC_GOOGLE_CLIENT_ID is required")
	}
	clientSecret := os.Getenv("HUBSYNC_GOOGLE_CLIENT_SECRET")
	if clientSecret == "" {
		return nil, fmt.Errorf("HUBSYNC_GOOGLE_CLIENT_SECRET is required")
	}
	alertURL := os.Getenv("HUBSYNC_ALERT_WEBHOOK_URL")
	if alertURL == "" {
		return nil, fmt.Errorf("HUBSYNC_ALERT_WEBHOOK_URL is required")
	}

	listenAddr := "0.0.0.0:8080"
	if v, ok := os.LookupEnv("HUBSYNC_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "hubsync.db"
	if v, ok := os.LookupEnv("HUBSYNC_DB_PATH"); ok {
		dbPath = v
	}

	hubURL := "https://pubsubhubbub.appspot.com/subscribe"
	if v, ok := os.LookupEnv("HUBSYNC_HUB_URL"); ok {
		hubURL = v
	}

	feedURL := "https://www.youtube.com/xml/feeds/videos.xml"
	if v, ok := os.LookupEnv("HUBSYNC_FEED_URL"); ok {
		feedURL = v
	}

	reconcileInterval, err := durationEnv("HUBSYNC_RECONCILE_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	renewalWindow, err := durationEnv("HUBSYNC_RENEWAL_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	renewalDelay, err := durationEnv("HUBSYNC_RENEWAL_DELAY", time.Hour)
	if err != nil {
		return nil, err
	}
	renewalFallback, err := durationEnv("HUBSYNC_RENEWAL_FALLBACK", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	if renewalDelay >= renewalWindow {
		return nil, fmt.Errorf("HUBSYNC_RENEWAL_DELAY (%s) must be shorter than HUBSYNC_RENEWAL_WINDOW (%s)", renewalDelay, renewalWindow)
	}

	redirectURL := os.Getenv("HUBSYNC_OAUTH_REDIRECT_URL")
	if redirectURL == "" {
		u := *parsedCallback
		u.Path = "/admin/auth"
		u.RawQuery = ""
		redirectURL = u.String()
	}

	rawKey := os.Getenv("HUBSYNC_SECRET_KEY")
	if rawKey == "" {
		return nil, fmt.Errorf("HUBSYNC_SECRET_KEY is required")
	}
	secretKey, err := hex.DecodeString(rawKey)
	if err != nil {
		return nil, fmt.Errorf("HUBSYNC_SECRET_KEY is not valid hex: %w", err)
	}
	if len(secretKey) != 32 {
		return nil, fmt.Errorf("HUBSYNC_SECRET_KEY must decode to 32 bytes, got %d", len(secretKey))
	}

	return &Config{
		ListenAddr:         listenAddr,
		DBPath:             dbPath,
		CallbackURL:        callbackURL,
		HubURL:             hubURL,
		FeedURL:            feedURL,
		ReconcileInterval:  reconcileInterval,
		RenewalWindow:      renewalWindow,
		RenewalDelay:       renewalDelay,
		RenewalFallback:    renewalFallback,
		GoogleClientID:     clientID,
		GoogleClientSecret: clientSecret,
		OAuthRedirectURL:   redirectURL,
		AlertWebhookURL:    alertURL,
		SecretKey:          secretKey,
	}, nil
}

// durationEnv parses an optional duration environment variable.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}
