// Package mapper maps Salesforce records onto application structs.
//
// Models are plain structs registered under their sObject name. Fields are
// matched to record keys through the `salesforce` struct tag:
//
//	type Account struct {
//		ID       string    `salesforce:"Id"`
//		Name     string    `salesforce:"Name"`
//		Owner    *User     `salesforce:"Owner"`    // lookup relationship
//		Contacts []Contact `salesforce:"Contacts"` // child relationship
//		Internal string    `salesforce:"-"`
//	}
//
// Untagged exported fields use the Go field name.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/natserract/sfmapper/pkg/mapper/response"
	"github.com/natserract/sfmapper/pkg/salesforce"
	"go.uber.org/zap"
)

const tagName = "salesforce"

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrInvalidModel = errors.New("model must be a struct")

	timeType = reflect.TypeOf(time.Time{})
)

// FieldError reports a record value that could not be assigned to a model field
type FieldError struct {
	Model string
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("mapping %s.%s: %v", e.Model, e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// Client is the part of the Salesforce client the mapper queries through
type Client interface {
	QueryIterator(ctx context.Context, soql string) (*salesforce.RecordIterator, error)
	DescribeSObject(ctx context.Context, name string) (*salesforce.DescribeSObjectResult, error)
}

type fieldKind int

const (
	scalarField fieldKind = iota
	// lookup relationship, a nested struct
	parentField
	// child relationship, a slice of structs filled from a sub-query
	childField
)

type fieldInfo struct {
	name string
	kind fieldKind
	// element struct type for parent and child fields
	elem reflect.Type
}

type Mapper struct {
	client Client
	logger *zap.Logger

	mu       sync.RWMutex
	models   map[string]reflect.Type
	fields   map[reflect.Type][]fieldInfo
	describe map[string]*salesforce.DescribeSObjectResult
}

var _ response.Mapper = (*Mapper)(nil)

// New creates a mapper. client may be nil when only MapToDomainObject is used.
func New(client Client, logger *zap.Logger) *Mapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mapper{
		client:   client,
		logger:   logger,
		models:   make(map[string]reflect.Type),
		fields:   make(map[reflect.Type][]fieldInfo),
		describe: make(map[string]*salesforce.DescribeSObjectResult),
	}
}

// Register binds an sObject name to a model struct. prototype may be a struct
// value or a pointer to one.
func (m *Mapper) Register(object string, prototype any) error {
	t := reflect.TypeOf(prototype)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct || t == timeType {
		return fmt.Errorf("%w: %s is %v", ErrInvalidModel, object, reflect.TypeOf(prototype))
	}

	m.mu.Lock()
	m.models[object] = t
	m.mu.Unlock()

	m.logger.Debug("Registered model", zap.String("sobject", object), zap.String("type", t.String()))
	return nil
}

// Models returns the registered sObject names
func (m *Mapper) Models() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.models))
	for name := range m.models {
		names = append(names, name)
	}
	return names
}

func (m *Mapper) modelType(model string) (reflect.Type, error) {
	m.mu.RLock()
	t, ok := m.models[model]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}
	return t, nil
}

// MapToDomainObject returns a new *Model populated from record
func (m *Mapper) MapToDomainObject(record salesforce.Record, model string) (any, error) {
	t, err := m.modelType(model)
	if err != nil {
		return nil, err
	}

	v := reflect.New(t)
	if err := m.decode(record, v.Interface()); err != nil {
		return nil, fieldError(t.Name(), err)
	}
	return v.Interface(), nil
}

// lookup matches keys exactly first; Salesforce API names are case-insensitive.
// Among keys differing only in case the lexically smallest wins.
func lookup(raw map[string]any, key string) (any, bool) {
	if v, ok := raw[key]; ok {
		return v, true
	}
	var (
		match string
		found bool
	)
	for k := range raw {
		if strings.EqualFold(k, key) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return nil, false
	}
	return raw[match], true
}

// fieldsOf returns the mapped fields of a struct type, cached per type
func (m *Mapper) fieldsOf(t reflect.Type) []fieldInfo {
	m.mu.RLock()
	fields, ok := m.fields[t]
	m.mu.RUnlock()
	if ok {
		return fields
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get(tagName)
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = sf.Name
		}

		f := fieldInfo{name: name, kind: scalarField}
		if elem, ok := structType(sf.Type); ok {
			f.kind, f.elem = parentField, elem
		} else if sf.Type.Kind() == reflect.Slice {
			if elem, ok := structType(sf.Type.Elem()); ok {
				f.kind, f.elem = childField, elem
			}
		}
		fields = append(fields, f)
	}

	m.mu.Lock()
	m.fields[t] = fields
	m.mu.Unlock()
	return fields
}

// structType unwraps pointers and reports whether t is a model-like struct
func structType(t reflect.Type) (reflect.Type, bool) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct || t == timeType {
		return nil, false
	}
	return t, true
}
