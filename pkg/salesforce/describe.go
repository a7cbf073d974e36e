package salesforce

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"
)

// DescribeSObject retrieves the field metadata of an sObject type
func (s *Salesforce) DescribeSObject(ctx context.Context, name string) (*DescribeSObjectResult, error) {
	if name == "" {
		return nil, fmt.Errorf("sObject name is required")
	}

	var result DescribeSObjectResult
	path := s.config.dataPath(fmt.Sprintf("/sobjects/%s/describe", url.PathEscape(name)))
	if err := s.get(ctx, path, nil, &result); err != nil {
		return nil, fmt.Errorf("describe %s failed: %w", name, err)
	}

	s.logger.Debug("Described sObject",
		zap.String("sobject", name),
		zap.Int("fields", len(result.Fields)))
	return &result, nil
}
