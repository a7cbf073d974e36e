package export_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/natserract/sfmapper/internal/model"
	"github.com/natserract/sfmapper/pkg/export"
	"github.com/natserract/sfmapper/pkg/mapper"
	"github.com/natserract/sfmapper/pkg/mapper/response"
	"github.com/natserract/sfmapper/pkg/salesforce"
)

type statement struct {
	sql  string
	args []any
}

type fakeDB struct {
	mu         sync.Mutex
	statements []statement
	failIDs    map[string]bool
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statements = append(f.statements, statement{sql: sql, args: args})

	if strings.HasPrefix(sql, "INSERT INTO sobject_records") {
		if f.failIDs[args[1].(string)] {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", Message: "duplicate key"}
		}
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) withPrefix(prefix string) []statement {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statement
	for _, s := range f.statements {
		if strings.HasPrefix(s.sql, prefix) {
			out = append(out, s)
		}
	}
	return out
}

type failingPages struct{}

func (failingPages) QueryMore(context.Context, string) (*salesforce.QueryResult, error) {
	return nil, errors.New("connection reset")
}

func accountSource(t *testing.T, first *salesforce.QueryResult) *response.MappedRecordIterator[any] {
	t.Helper()
	m := mapper.New(nil, zap.NewNop())
	require.NoError(t, model.Register(m))
	cursor := salesforce.NewRecordIterator(context.Background(), failingPages{}, first)
	return response.NewMappedRecordIterator[any](cursor, m, "Account")
}

func TestExportSavesEveryObject(t *testing.T) {
	db := &fakeDB{}
	src := accountSource(t, &salesforce.QueryResult{TotalSize: 3, Done: true, Records: []salesforce.Record{
		{"Id": "001A", "Name": "Acme"},
		{"Id": "001B", "Name": "Globex"},
		{"Id": "001C", "Name": "Initech"},
	}})

	metrics, err := export.NewService(db, 2, zap.NewNop()).Export(context.Background(), "Account", src)
	require.NoError(t, err)
	assert.Equal(t, 3, metrics.Succeeded)
	assert.Zero(t, metrics.Failed)

	jobs := db.withPrefix("INSERT INTO export_jobs")
	require.Len(t, jobs, 1)
	assert.Equal(t, metrics.JobID, jobs[0].args[0])
	assert.Equal(t, 3, jobs[0].args[2])

	saved := map[string]string{}
	for _, s := range db.withPrefix("INSERT INTO sobject_records") {
		var account model.Account
		require.NoError(t, json.Unmarshal(s.args[2].([]byte), &account))
		saved[s.args[1].(string)] = account.Name
		assert.Equal(t, metrics.JobID, s.args[3])
	}
	assert.Equal(t, map[string]string{"001A": "Acme", "001B": "Globex", "001C": "Initech"}, saved)

	done := db.withPrefix("UPDATE export_jobs")
	require.Len(t, done, 1)
	assert.Equal(t, "completed", done[0].args[1])
	assert.Equal(t, 3, done[0].args[2])
	assert.Nil(t, done[0].args[5])
}

func TestExportCountsFailures(t *testing.T) {
	db := &fakeDB{failIDs: map[string]bool{"001B": true}}
	src := accountSource(t, &salesforce.QueryResult{TotalSize: 4, Done: true, Records: []salesforce.Record{
		{"Id": "001A"},
		{"Id": "001B"},
		{"Id": "001C", "NumberOfEmployees": "lots"},
		{"Name": "no id"},
	}})

	metrics, err := export.NewService(db, 1, zap.NewNop()).Export(context.Background(), "Account", src)
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Succeeded)
	assert.Equal(t, 3, metrics.Failed)
	assert.Equal(t, 4, metrics.Processed())
}

func TestExportStopsOnPaginationError(t *testing.T) {
	db := &fakeDB{}
	src := accountSource(t, &salesforce.QueryResult{
		TotalSize:      4,
		NextRecordsURL: "/next",
		Records:        []salesforce.Record{{"Id": "001A"}, {"Id": "001B"}},
	})

	metrics, err := export.NewService(db, 0, nil).Export(context.Background(), "Account", src)
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 2, metrics.Succeeded)

	done := db.withPrefix("UPDATE export_jobs")
	require.Len(t, done, 1)
	assert.Equal(t, "failed", done[0].args[1])
	require.NotNil(t, done[0].args[5])
	assert.Contains(t, *done[0].args[5].(*string), "connection reset")
}
