package salesforce

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultAPIVersion = "61.0"
	DefaultTokenTTL   = 30 * time.Minute

	// tokens are refreshed this long before TokenTTL runs out
	tokenExpiryMargin = 30 * time.Second
)

type Config struct {
	BaseURI      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	// TokenTTL is how long an access token is trusted; the OAuth response of
	// the client credentials flow carries no expiry.
	TokenTTL time.Duration
}

func (c *Config) Validate() error {
	if c.BaseURI == "" {
		return fmt.Errorf("SF_BASE_URI is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("SF_CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("SF_CLIENT_SECRET is required")
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	c.APIVersion = strings.TrimPrefix(c.APIVersion, "v")
	if c.TokenTTL <= 0 {
		c.TokenTTL = DefaultTokenTTL
	}
	if c.TokenTTL <= tokenExpiryMargin {
		return fmt.Errorf("SF_TOKEN_TTL must be longer than %s", tokenExpiryMargin)
	}
	return nil
}

func (c *Config) dataPath(suffix string) string {
	return fmt.Sprintf("/services/data/v%s%s", c.APIVersion, suffix)
}
