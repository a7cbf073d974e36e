package salesforce

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Query runs a SOQL query and returns its first page
func (s *Salesforce) Query(ctx context.Context, soql string) (*QueryResult, error) {
	s.logger.Debug("Running query", zap.String("soql", soql))

	var result QueryResult
	if err := s.get(ctx, s.config.dataPath("/query"), map[string]string{"q": soql}, &result); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	s.logger.Info("Query returned",
		zap.Int("total_size", result.TotalSize),
		zap.Int("records", len(result.Records)),
		zap.Bool("done", result.Done))
	return &result, nil
}

// QueryMore fetches the page behind a nextRecordsUrl
func (s *Salesforce) QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResult, error) {
	if nextRecordsURL == "" {
		return nil, fmt.Errorf("nextRecordsUrl is required")
	}

	var result QueryResult
	if err := s.get(ctx, nextRecordsURL, nil, &result); err != nil {
		return nil, fmt.Errorf("query more failed: %w", err)
	}

	s.logger.Debug("Fetched next query page",
		zap.String("next_records_url", nextRecordsURL),
		zap.Int("records", len(result.Records)),
		zap.Bool("done", result.Done))
	return &result, nil
}

// QueryIterator runs a SOQL query and returns a cursor over all of its pages.
// Pages after the first are fetched lazily with ctx.
func (s *Salesforce) QueryIterator(ctx context.Context, soql string) (*RecordIterator, error) {
	result, err := s.Query(ctx, soql)
	if err != nil {
		return nil, err
	}
	return NewRecordIterator(ctx, s, result), nil
}
