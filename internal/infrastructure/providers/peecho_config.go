package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// PeechoConfig holds configuration for the Peecho print API
type PeechoConfig struct {
	// APIKey authenticates requests via the X-Api-Key header
	APIKey string
	// MerchantID identifies the merchant account orders are placed under
	MerchantID string
	// WebhookSecret signs webhook deliveries
	WebhookSecret string
	// APIBaseURL is the base URL for the Peecho API (live or test)
	APIBaseURL string
	// IsSandbox indicates if this is the test environment
	IsSandbox bool
	// TimeoutSeconds is the HTTP request timeout
	TimeoutSeconds int
}

const (
	// PeechoProductionAPIURL is the live API endpoint
	PeechoProductionAPIURL = "https://printapi.peecho.com"
	// PeechoSandboxAPIURL is the test API endpoint
	PeechoSandboxAPIURL = "https://test.printapi.peecho.com"
)

// Errors for Peecho configuration
var (
	ErrPeechoConfigMissingAPIKey     = errors.New("peecho: API key is required")
	ErrPeechoConfigMissingMerchantID = errors.New("peecho: merchant ID is required")
)

// NewPeechoConfig creates a new Peecho configuration with production defaults
func NewPeechoConfig(apiKey, merchantID, webhookSecret string) *PeechoConfig {
	return &PeechoConfig{
		APIKey:         apiKey,
		MerchantID:     merchantID,
		WebhookSecret:  webhookSecret,
		APIBaseURL:     PeechoProductionAPIURL,
		IsSandbox:      false,
		TimeoutSeconds: 15,
	}
}

// NewSandboxPeechoConfig creates a new Peecho configuration for the test environment
func NewSandboxPeechoConfig(apiKey, merchantID, webhookSecret string) *PeechoConfig {
	return &PeechoConfig{
		APIKey:         apiKey,
		MerchantID:     merchantID,
		WebhookSecret:  webhookSecret,
		APIBaseURL:     PeechoSandboxAPIURL,
		IsSandbox:      true,
		TimeoutSeconds: 15,
	}
}

// Validate validates the Peecho configuration and fills defaults
func (c *PeechoConfig) Validate() error {
	if c.APIKey == "" {
		return ErrPeechoConfigMissingAPIKey
	}
	if c.MerchantID == "" {
		return ErrPeechoConfigMissingMerchantID
	}
	if c.APIBaseURL == "" {
		if c.IsSandbox {
			c.APIBaseURL = PeechoSandboxAPIURL
		} else {
			c.APIBaseURL = PeechoProductionAPIURL
		}
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	return nil
}

// SignWebhook computes the base64 HMAC-SHA256 signature Peecho attaches to
// webhook deliveries. Exposed so tests can produce valid deliveries.
func (c *PeechoConfig) SignWebhook(body []byte) string {
	h := hmac.New(sha256.New, []byte(c.WebhookSecret))
	h.Write(body)
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// VerifyWebhook checks a delivery signature in constant time. With no secret
// configured verification is disabled and every delivery is accepted;
// deployments that authenticate deliveries at the webhook endpoint leave the
// secret unset.
func (c *PeechoConfig) VerifyWebhook(signature string, body []byte) bool {
	if c.WebhookSecret == "" {
		return true
	}
	expected := c.SignWebhook(body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
