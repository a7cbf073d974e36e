// Package salesforce is a small client for the Salesforce Platform REST API.
//
// It covers what the mapper needs and nothing more: OAuth client credentials
// authentication, SOQL queries with query-more pagination exposed as a
// RecordIterator, and sObject describe. Writes, the bulk API and streaming are
// not supported.
package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	httpclient "github.com/natserract/sfmapper/pkg/http"
	"go.uber.org/zap"
)

// Salesforce is the main client for interacting with the Salesforce REST API
type Salesforce struct {
	config     *Config
	httpClient *httpclient.Client
	tokenCache *tokenCache
	logger     *zap.Logger
}

// tokenCache manages the OAuth access token with thread-safe access
type tokenCache struct {
	mu          sync.RWMutex
	accessToken string
	instanceURL string
	expiresAt   time.Time
}

// APIError is an error body returned by the REST API
type APIError struct {
	StatusCode int
	ErrorCode  string `json:"errorCode"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("salesforce: %s: %s (status %d)", e.ErrorCode, e.Message, e.StatusCode)
}

// NewSalesforce creates a new Salesforce client with a custom logger
func NewSalesforce(cfg *Config, logger *zap.Logger) *Salesforce {
	return NewSalesforceWithHTTP(cfg, httpclient.NewClient(logger), logger)
}

// NewSalesforceWithHTTP creates a client on top of an existing transport
func NewSalesforceWithHTTP(cfg *Config, hc *httpclient.Client, logger *zap.Logger) *Salesforce {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Salesforce{
		config:     cfg,
		httpClient: hc,
		tokenCache: &tokenCache{},
		logger:     logger,
	}
}

// get performs an authenticated GET against path (relative to the instance
// URL) and decodes the JSON body into out. An expired session is refreshed
// once.
func (s *Salesforce) get(ctx context.Context, path string, queryParams map[string]string, out any) error {
	for attempt := 0; ; attempt++ {
		token, instanceURL, err := s.getAccessToken(ctx)
		if err != nil {
			return err
		}

		endpoint, err := httpclient.BuildURL(instanceURL, path, queryParams)
		if err != nil {
			return fmt.Errorf("failed to build URL: %w", err)
		}

		resp, err := s.httpClient.Get(ctx, endpoint, map[string]string{
			"Authorization": "Bearer " + token,
		})
		if err != nil {
			var statusErr *httpclient.StatusError
			if errors.As(err, &statusErr) {
				if statusErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
					s.logger.Info("Session expired, re-authenticating")
					s.invalidateToken()
					continue
				}
				return toAPIError(statusErr)
			}
			return fmt.Errorf("request to %s failed: %w", path, err)
		}

		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("failed to parse response of %s: %w", path, err)
		}
		return nil
	}
}

func toAPIError(statusErr *httpclient.StatusError) error {
	var errs []APIError
	if err := json.Unmarshal(statusErr.Body, &errs); err != nil || len(errs) == 0 {
		return statusErr
	}
	apiErr := errs[0]
	apiErr.StatusCode = statusErr.StatusCode
	return &apiErr
}

func (s *Salesforce) baseURI() string {
	return strings.TrimSuffix(s.config.BaseURI, "/")
}
