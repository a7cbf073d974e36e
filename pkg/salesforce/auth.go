package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// getAccessToken returns a cached token and instance URL, authenticating when
// the cache is empty or the token is about to expire.
func (s *Salesforce) getAccessToken(ctx context.Context) (string, string, error) {
	s.tokenCache.mu.RLock()
	if s.tokenCache.accessToken != "" && time.Now().Before(s.tokenCache.expiresAt) {
		token, instanceURL := s.tokenCache.accessToken, s.tokenCache.instanceURL
		s.tokenCache.mu.RUnlock()
		return token, instanceURL, nil
	}
	s.tokenCache.mu.RUnlock()

	s.logger.Info("Access token expired or not available, authenticating")
	authResp, err := s.Authenticate(ctx)
	if err != nil {
		s.logger.Error("Failed to authenticate", zap.Error(err))
		return "", "", fmt.Errorf("failed to authenticate: %w", err)
	}

	instanceURL := authResp.InstanceURL
	if instanceURL == "" {
		instanceURL = s.baseURI()
	}

	s.tokenCache.mu.Lock()
	s.tokenCache.accessToken = authResp.AccessToken
	s.tokenCache.instanceURL = instanceURL
	s.tokenCache.expiresAt = time.Now().Add(tokenLifetime(s.config.TokenTTL))
	expiresAt := s.tokenCache.expiresAt
	s.tokenCache.mu.Unlock()

	s.logger.Info("Cached access token",
		zap.String("instance_url", instanceURL),
		zap.Time("expires_at", expiresAt))

	return authResp.AccessToken, instanceURL, nil
}

// tokenLifetime is how long a fresh token is served from the cache. The
// margin is only taken off TTLs that can afford it.
func tokenLifetime(ttl time.Duration) time.Duration {
	if ttl > 2*tokenExpiryMargin {
		return ttl - tokenExpiryMargin
	}
	return ttl / 2
}

func (s *Salesforce) invalidateToken() {
	s.tokenCache.mu.Lock()
	s.tokenCache.accessToken = ""
	s.tokenCache.mu.Unlock()
}

// Authenticate retrieves an OAuth access token with the client credentials flow
func (s *Salesforce) Authenticate(ctx context.Context) (*AuthResponse, error) {
	endpoint := s.baseURI() + "/services/oauth2/token"
	s.logger.Info("Authenticating with Salesforce", zap.String("url", endpoint))

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", s.config.ClientID)
	form.Set("client_secret", s.config.ClientSecret)

	resp, err := s.httpClient.Post(ctx, endpoint, nil, form)
	if err != nil {
		return nil, fmt.Errorf("authentication request failed: %w", err)
	}

	var authResp AuthResponse
	if err := json.Unmarshal(resp.Body, &authResp); err != nil {
		return nil, fmt.Errorf("failed to parse authentication response: %w", err)
	}
	if authResp.AccessToken == "" {
		return nil, fmt.Errorf("authentication response has no access token")
	}

	s.logger.Info("Successfully authenticated", zap.String("token_type", authResp.TokenType))
	return &authResp, nil
}
