package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// LuluConfig holds configuration for the Lulu print API
type LuluConfig struct {
	// APIKey is the client key from the Lulu developer portal
	APIKey string
	// APISecret is the client secret paired with the key
	APISecret string
	// WebhookSecret signs webhook deliveries so we can verify their origin
	WebhookSecret string
	// APIBaseURL is the base URL for the Lulu API (live or sandbox)
	APIBaseURL string
	// IsSandbox indicates if this is a sandbox environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// LuluProductionAPIURL is the live API endpoint
	LuluProductionAPIURL = "https://api.lulu.com"
	// LuluSandboxAPIURL is the sandbox API endpoint
	LuluSandboxAPIURL = "https://api.sandbox.lulu.com"
)

// Errors for Lulu configuration
var (
	ErrLuluConfigMissingAPIKey    = errors.New("lulu: API key is required")
	ErrLuluConfigMissingAPISecret = errors.New("lulu: API secret is required")
)

// NewLuluConfig creates a new Lulu configuration with production defaults
func NewLuluConfig(apiKey, apiSecret, webhookSecret string) *LuluConfig {
	return &LuluConfig{
		APIKey:         apiKey,
		APISecret:      apiSecret,
		WebhookSecret:  webhookSecret,
		APIBaseURL:     LuluProductionAPIURL,
		IsSandbox:      false,
		TimeoutSeconds: 15,
	}
}

// NewSandboxLuluConfig creates a new Lulu configuration for the sandbox environment
func NewSandboxLuluConfig(apiKey, apiSecret, webhookSecret string) *LuluConfig {
	return &LuluConfig{
		APIKey:         apiKey,
		APISecret:      apiSecret,
		WebhookSecret:  webhookSecret,
		APIBaseURL:     LuluSandboxAPIURL,
		IsSandbox:      true,
		TimeoutSeconds: 15,
	}
}

// Validate validates the Lulu configuration and fills defaults
func (c *LuluConfig) Validate() error {
	if c.APIKey == "" {
		return ErrLuluConfigMissingAPIKey
	}
	if c.APISecret == "" {
		return ErrLuluConfigMissingAPISecret
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = LuluSandboxAPIURL
		} else {
			c.APIBaseURL = LuluProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// SignWebhook computes the HMAC-SHA256 signature Lulu attaches to webhook
// deliveries. Exposed so tests can produce valid deliveries.
func (c *LuluConfig) SignWebhook(body []byte) string {
	h := hmac.New(sha256.New, []byte(c.WebhookSecret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhook checks a delivery signature in constant time. With no secret
// configured verification is disabled and every delivery is accepted;
// deployments that authenticate deliveries at the webhook endpoint leave the
// secret unset.
func (c *LuluConfig) VerifyWebhook(signature string, body []byte) bool {
	if c.WebhookSecret == "" {
		return true
	}
	expected := c.SignWebhook(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
