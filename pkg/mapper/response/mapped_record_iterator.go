package response

import (
	"errors"
	"fmt"

	"github.com/natserract/sfmapper/pkg/salesforce"
	"github.com/samber/mo"
)

// ErrUnexpectedModel is returned when the mapper produces a value that is not
// of the iterator's element type.
var ErrUnexpectedModel = errors.New("mapped object has unexpected type")

// Cursor is a sequential and random access view over query results, such as
// salesforce.RecordIterator.
type Cursor interface {
	Next()
	Key() int
	Valid() bool
	Rewind()
	// Seek moves to index and returns the record there, if any
	Seek(index int) (mo.Option[salesforce.Record], error)
	// Count is the total number of records, fetched or not
	Count() int
	Err() error
}

// Mapper turns a raw record into a domain object of the named model
type Mapper interface {
	MapToDomainObject(record salesforce.Record, model string) (any, error)
}

// MappedRecordIterator wraps a record cursor and returns a mapped domain
// object for each Salesforce record. Navigation is delegated to the cursor;
// records are mapped on every access and nothing is cached.
type MappedRecordIterator[T any] struct {
	cursor Cursor
	mapper Mapper
	model  string
}

func NewMappedRecordIterator[T any](cursor Cursor, mapper Mapper, model string) *MappedRecordIterator[T] {
	return &MappedRecordIterator[T]{
		cursor: cursor,
		mapper: mapper,
		model:  model,
	}
}

// Inner returns the wrapped cursor
func (it *MappedRecordIterator[T]) Inner() Cursor {
	return it.cursor
}

// Model returns the name of the model records are mapped to
func (it *MappedRecordIterator[T]) Model() string {
	return it.model
}

// Current returns the domain object at the current position
func (it *MappedRecordIterator[T]) Current() (mo.Option[T], error) {
	return it.Get(it.Key())
}

func (it *MappedRecordIterator[T]) Next() {
	it.cursor.Next()
}

func (it *MappedRecordIterator[T]) Key() int {
	return it.cursor.Key()
}

func (it *MappedRecordIterator[T]) Valid() bool {
	return it.cursor.Valid()
}

func (it *MappedRecordIterator[T]) Rewind() {
	it.cursor.Rewind()
}

func (it *MappedRecordIterator[T]) Err() error {
	return it.cursor.Err()
}

// First returns the first domain object in the collection. An empty
// collection yields None, not an error.
func (it *MappedRecordIterator[T]) First() (mo.Option[T], error) {
	return it.Get(0)
}

// Count returns the total number of records returned by Salesforce
func (it *MappedRecordIterator[T]) Count() int {
	return it.cursor.Count()
}

// Get returns the domain object at key, or None if there is no record there
func (it *MappedRecordIterator[T]) Get(key int) (mo.Option[T], error) {
	record, err := it.cursor.Seek(key)
	if err != nil {
		return mo.None[T](), err
	}
	sObject, ok := record.Get()
	if !ok {
		return mo.None[T](), nil
	}

	mapped, err := it.mapper.MapToDomainObject(sObject, it.model)
	if err != nil {
		return mo.None[T](), err
	}
	obj, ok := mapped.(T)
	if !ok {
		return mo.None[T](), fmt.Errorf("%w: %s mapped to %T", ErrUnexpectedModel, it.model, mapped)
	}
	return mo.Some(obj), nil
}
