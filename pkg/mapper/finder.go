package mapper

import (
	"context"
	"fmt"

	"github.com/natserract/sfmapper/pkg/mapper/response"
	"github.com/samber/mo"
	"go.uber.org/zap"
)

// FindBy queries model with q and returns a lazily mapped iterator over the
// results. T is usually a pointer to the registered model struct.
func FindBy[T any](ctx context.Context, m *Mapper, model string, q Query) (*response.MappedRecordIterator[T], error) {
	if m.client == nil {
		return nil, ErrNoClient
	}

	soql, err := m.BuildQuery(ctx, model, q)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Finding records", zap.String("sobject", model), zap.String("soql", soql))
	cursor, err := m.client.QueryIterator(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", model, err)
	}

	return response.NewMappedRecordIterator[T](cursor, m, model), nil
}

// FindAll returns every record of model
func FindAll[T any](ctx context.Context, m *Mapper, model string) (*response.MappedRecordIterator[T], error) {
	return FindBy[T](ctx, m, model, Query{})
}

// Find returns the record of model with the given Id, if it exists
func Find[T any](ctx context.Context, m *Mapper, model string, id string) (mo.Option[T], error) {
	it, err := FindBy[T](ctx, m, model, Query{
		Criteria: map[string]any{"Id": id},
		Limit:    1,
	})
	if err != nil {
		return mo.None[T](), err
	}
	return it.First()
}
