// Package export copies mapped Salesforce objects into Postgres.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/mo"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrNoID is returned for mapped objects that do not expose a Salesforce Id
var ErrNoID = errors.New("object has no salesforce id")

// Execer is satisfied by *pgxpool.Pool, pgx.Tx and *pgx.Conn
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Identifiable objects can be stored under their Salesforce Id
type Identifiable interface {
	SalesforceID() string
}

// Source is a mapped record iterator, e.g. *response.MappedRecordIterator[any]
type Source interface {
	Rewind()
	Valid() bool
	Next()
	Key() int
	Current() (mo.Option[any], error)
	Count() int
	Err() error
}

// Metrics tracks the outcome of an export
type Metrics struct {
	JobID     uuid.UUID
	Succeeded int
	Failed    int
	Duration  time.Duration
	mu        sync.Mutex
}

// AddSuccess increments the succeeded count
func (m *Metrics) AddSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Succeeded++
}

// AddFailure increments the failed count
func (m *Metrics) AddFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed++
}

// Processed returns the number of objects handled so far
func (m *Metrics) Processed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Succeeded + m.Failed
}

// Service stores mapped objects as JSON rows keyed by sObject and Id
type Service struct {
	db      Execer
	workers int
	logger  *zap.Logger
}

// NewService creates an export service saving with up to workers concurrent statements
func NewService(db Execer, workers int, logger *zap.Logger) *Service {
	if workers <= 0 {
		workers = 10
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, workers: workers, logger: logger}
}

const (
	insertJobSQL = `INSERT INTO export_jobs (id, sobject, status, total_items, started_at)
VALUES ($1, $2, 'running', $3, now())`

	completeJobSQL = `UPDATE export_jobs
SET status = $2, processed_items = $3, succeeded_items = $4, failed_items = $5,
    error = $6, duration_ms = $7, completed_at = now()
WHERE id = $1`

	upsertRecordSQL = `INSERT INTO sobject_records (sobject, id, payload, export_job_id, synced_at)
VALUES ($1, $2, $3, $4, now())
ON CONFLICT (sobject, id) DO UPDATE
SET payload = EXCLUDED.payload, export_job_id = EXCLUDED.export_job_id, synced_at = EXCLUDED.synced_at`
)

// Export walks src from the start and saves every object. The iterator is
// only touched from the calling goroutine; saves run on a worker pool.
// Objects that fail to map or save are counted, not fatal. A pagination
// error aborts the export and marks the job failed.
func (s *Service) Export(ctx context.Context, sobject string, src Source) (*Metrics, error) {
	startTime := time.Now()
	metrics := &Metrics{JobID: uuid.New()}

	if _, err := s.db.Exec(ctx, insertJobSQL, metrics.JobID, sobject, src.Count()); err != nil {
		return metrics, fmt.Errorf("failed to create export job: %w", err)
	}
	s.logger.Info("Started export job",
		zap.String("job_id", metrics.JobID.String()),
		zap.String("sobject", sobject),
		zap.Int("total_items", src.Count()))

	p := pool.New().WithMaxGoroutines(s.workers).WithErrors()
	for src.Rewind(); src.Valid(); src.Next() {
		key := src.Key()
		obj, err := src.Current()
		if err != nil {
			metrics.AddFailure()
			s.logger.Error("Failed to map record",
				zap.String("sobject", sobject),
				zap.Int("key", key),
				zap.Error(err))
			continue
		}
		value, ok := obj.Get()
		if !ok {
			continue
		}

		p.Go(func() error {
			if err := s.save(ctx, sobject, metrics.JobID, value); err != nil {
				metrics.AddFailure()
				s.logger.Error("Failed to save record",
					zap.String("sobject", sobject),
					zap.Int("key", key),
					zap.Error(err))
				return err
			}
			metrics.AddSuccess()
			return nil
		})
	}
	// individual failures are already counted
	_ = p.Wait()

	metrics.Duration = time.Since(startTime)

	status, errText := "completed", mo.None[string]()
	iterErr := src.Err()
	if iterErr != nil {
		status, errText = "failed", mo.Some(iterErr.Error())
	}

	if _, err := s.db.Exec(ctx, completeJobSQL,
		metrics.JobID, status, metrics.Processed(), metrics.Succeeded, metrics.Failed,
		errText.ToPointer(), metrics.Duration.Milliseconds(),
	); err != nil {
		s.logger.Warn("Failed to complete export job",
			zap.String("job_id", metrics.JobID.String()),
			zap.Error(err))
	}

	s.logger.Info("Finished export job",
		zap.String("job_id", metrics.JobID.String()),
		zap.String("sobject", sobject),
		zap.String("status", status),
		zap.Int("succeeded", metrics.Succeeded),
		zap.Int("failed", metrics.Failed),
		zap.Duration("duration", metrics.Duration))

	if iterErr != nil {
		return metrics, fmt.Errorf("export of %s interrupted: %w", sobject, iterErr)
	}
	return metrics, nil
}

func (s *Service) save(ctx context.Context, sobject string, jobID uuid.UUID, obj any) error {
	ident, ok := obj.(Identifiable)
	if !ok || ident.SalesforceID() == "" {
		return fmt.Errorf("%w: %T", ErrNoID, obj)
	}

	payload, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to encode %s %s: %w", sobject, ident.SalesforceID(), err)
	}

	tag, err := s.db.Exec(ctx, upsertRecordSQL, sobject, ident.SalesforceID(), payload, jobID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return fmt.Errorf("failed to save %s %s (%s): %w", sobject, ident.SalesforceID(), pgErr.Code, err)
		}
		return fmt.Errorf("failed to save %s %s: %w", sobject, ident.SalesforceID(), err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to save %s %s: no rows affected", sobject, ident.SalesforceID())
	}
	return nil
}
