package salesforce

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/mo"
)

// ErrNoPage is recorded when QueryMore returns neither a page nor an error
var ErrNoPage = errors.New("query returned no page")

type pageFetcher interface {
	QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResult, error)
}

// RecordIterator is a cursor over every record of a query. It starts with the
// first page and pulls further pages through QueryMore only when a position
// beyond the fetched records is requested. Fetched records are kept, so
// rewinding and seeking backwards never hits the network.
//
// A RecordIterator is meant for a single consumer.
type RecordIterator struct {
	ctx       context.Context
	client    pageFetcher
	totalSize int
	done      bool
	next      string
	records   []Record
	pointer   int
	err       error
}

// NewRecordIterator creates a cursor starting at the first record of first
func NewRecordIterator(ctx context.Context, client pageFetcher, first *QueryResult) *RecordIterator {
	it := &RecordIterator{ctx: ctx, client: client, done: true}
	if first != nil {
		it.totalSize = first.TotalSize
		it.done = first.Done || first.NextRecordsURL == ""
		it.next = first.NextRecordsURL
		it.records = append(it.records, first.Records...)
	}
	return it
}

// Next moves to the next position
func (it *RecordIterator) Next() {
	it.pointer++
}

// Key returns the current position
func (it *RecordIterator) Key() int {
	return it.pointer
}

// Valid reports whether a record exists at the current position, fetching
// the next page if needed. It is false once a fetch has failed; see Err.
func (it *RecordIterator) Valid() bool {
	if it.pointer < 0 {
		return false
	}
	if err := it.fetchUntil(it.pointer); err != nil {
		return false
	}
	return it.pointer < len(it.records)
}

// Rewind moves back to the first position
func (it *RecordIterator) Rewind() {
	it.pointer = 0
}

// Seek moves to index and returns the record there, or None when the query
// has no record at that position.
func (it *RecordIterator) Seek(index int) (mo.Option[Record], error) {
	it.pointer = index
	if index < 0 {
		return mo.None[Record](), nil
	}
	if err := it.fetchUntil(index); err != nil {
		return mo.None[Record](), err
	}
	if index >= len(it.records) {
		return mo.None[Record](), nil
	}
	return mo.Some(it.records[index]), nil
}

// Count returns the total number of records the query matched, which may
// exceed the number fetched so far.
func (it *RecordIterator) Count() int {
	return it.totalSize
}

// Fetched returns how many records have been pulled from the API
func (it *RecordIterator) Fetched() int {
	return len(it.records)
}

// Err returns the error that stopped pagination, if any
func (it *RecordIterator) Err() error {
	return it.err
}

func (it *RecordIterator) fetchUntil(index int) error {
	for index >= len(it.records) && !it.done && it.err == nil {
		if it.client == nil {
			it.done = true
			break
		}
		page, err := it.client.QueryMore(it.ctx, it.next)
		if err != nil {
			it.err = err
			break
		}
		if page == nil {
			it.err = fmt.Errorf("%w: %s", ErrNoPage, it.next)
			break
		}
		it.records = append(it.records, page.Records...)
		it.next = page.NextRecordsURL
		// an empty page that claims more would loop forever
		it.done = page.Done || page.NextRecordsURL == "" || len(page.Records) == 0
	}
	if index < len(it.records) {
		return nil
	}
	return it.err
}
