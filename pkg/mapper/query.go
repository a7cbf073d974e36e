package mapper

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/natserract/sfmapper/pkg/salesforce"
	"go.uber.org/zap"
)

// maxRelationDepth bounds how far parent relationships are followed when
// selecting fields, so self-referencing models terminate.
const maxRelationDepth = 3

var (
	ErrNoClient     = errors.New("mapper has no salesforce client")
	ErrInvalidQuery = errors.New("invalid query")

	fieldPathRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*(\.[A-Za-z][A-Za-z0-9_]*)*$`)
	orderByRe   = regexp.MustCompile(`(?i)^[A-Za-z][A-Za-z0-9_.]*( (ASC|DESC))?( NULLS (FIRST|LAST))?$`)
)

// Query narrows a SOQL select built from a model
type Query struct {
	// Criteria are ANDed equality conditions; slice values become IN lists
	Criteria map[string]any
	OrderBy  []string
	Limit    int
}

// Describe returns the describe result of an sObject, fetched once per mapper
func (m *Mapper) Describe(ctx context.Context, object string) (*salesforce.DescribeSObjectResult, error) {
	m.mu.RLock()
	desc, ok := m.describe[object]
	m.mu.RUnlock()
	if ok {
		return desc, nil
	}
	if m.client == nil {
		return nil, ErrNoClient
	}

	desc, err := m.client.DescribeSObject(ctx, object)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.describe[object] = desc
	m.mu.Unlock()
	return desc, nil
}

// BuildQuery renders the SOQL statement selecting every mapped field of model.
// Fields and relationships the describe results do not know are left out,
// at the top level and through relationships alike.
func (m *Mapper) BuildQuery(ctx context.Context, model string, q Query) (string, error) {
	t, err := m.modelType(model)
	if err != nil {
		return "", err
	}
	desc, err := m.Describe(ctx, model)
	if err != nil {
		return "", fmt.Errorf("describe %s: %w", model, err)
	}

	selects, err := m.selectFields(ctx, t, desc, "", 0)
	if err != nil {
		return "", err
	}
	if len(selects) == 0 {
		return "", fmt.Errorf("%w: %s has no queryable fields", ErrInvalidQuery, model)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", strings.Join(selects, ", "), model)

	where, err := m.whereClause(ctx, q.Criteria, desc)
	if err != nil {
		return "", err
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	if len(q.OrderBy) > 0 {
		for _, o := range q.OrderBy {
			if !orderByRe.MatchString(o) {
				return "", fmt.Errorf("%w: order by %q", ErrInvalidQuery, o)
			}
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.OrderBy, ", "))
	}

	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}

	return b.String(), nil
}

// selectFields lists the fields of t that desc knows, prefixed with the
// relationship path. Parent relationships are followed up to
// maxRelationDepth. Child relationships become sub-queries and are only
// valid at the top level (depth 0).
func (m *Mapper) selectFields(ctx context.Context, t reflect.Type, desc *salesforce.DescribeSObjectResult, prefix string, depth int) ([]string, error) {
	var out []string
	for _, f := range m.fieldsOf(t) {
		path := f.name
		if prefix != "" {
			path = prefix + "." + f.name
		}

		switch f.kind {
		case scalarField:
			if desc.GetField(f.name).IsAbsent() {
				m.logger.Warn("Skipping unknown field", zap.String("sobject", desc.Name), zap.String("field", path))
				continue
			}
			out = append(out, path)

		case parentField:
			if depth >= maxRelationDepth {
				continue
			}
			rel, ok := desc.GetRelationship(f.name).Get()
			if !ok || len(rel.ReferenceTo) == 0 {
				m.logger.Warn("Skipping unknown relationship", zap.String("sobject", desc.Name), zap.String("relationship", path))
				continue
			}
			// polymorphic lookups are selected through their first target
			parent, err := m.Describe(ctx, rel.ReferenceTo[0])
			if err != nil {
				return nil, fmt.Errorf("describe %s: %w", rel.ReferenceTo[0], err)
			}
			sub, err := m.selectFields(ctx, f.elem, parent, path, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)

		case childField:
			if depth > 0 {
				continue
			}
			rel, ok := desc.GetChildRelationship(f.name).Get()
			if !ok {
				m.logger.Warn("Skipping unknown child relationship", zap.String("sobject", desc.Name), zap.String("relationship", path))
				continue
			}
			child, err := m.Describe(ctx, rel.ChildSObject)
			if err != nil {
				return nil, fmt.Errorf("describe %s: %w", rel.ChildSObject, err)
			}
			// only the child's own fields are selected in a sub-query
			sub, err := m.selectFields(ctx, f.elem, child, "", maxRelationDepth)
			if err != nil {
				return nil, err
			}
			if len(sub) > 0 {
				out = append(out, fmt.Sprintf("(SELECT %s FROM %s)", strings.Join(sub, ", "), f.name))
			}
		}
	}
	return out, nil
}

func (m *Mapper) whereClause(ctx context.Context, criteria map[string]any, desc *salesforce.DescribeSObjectResult) (string, error) {
	if len(criteria) == 0 {
		return "", nil
	}

	keys := make([]string, 0, len(criteria))
	for k := range criteria {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]string, 0, len(keys))
	for _, k := range keys {
		if !fieldPathRe.MatchString(k) {
			return "", fmt.Errorf("%w: field %q", ErrInvalidQuery, k)
		}
		fieldType, err := m.fieldType(ctx, desc, k)
		if err != nil {
			return "", err
		}
		cond, err := condition(k, fieldType, criteria[k])
		if err != nil {
			return "", err
		}
		conds = append(conds, cond)
	}
	return strings.Join(conds, " AND "), nil
}

// fieldType resolves the describe type of a field path such as
// Contact.Account.CreatedDate, or "" when a step of it is unknown.
func (m *Mapper) fieldType(ctx context.Context, desc *salesforce.DescribeSObjectResult, path string) (string, error) {
	segments := strings.Split(path, ".")
	for _, name := range segments[:len(segments)-1] {
		rel, ok := desc.GetRelationship(name).Get()
		if !ok || len(rel.ReferenceTo) == 0 {
			return "", nil
		}
		next, err := m.Describe(ctx, rel.ReferenceTo[0])
		if err != nil {
			return "", fmt.Errorf("describe %s: %w", rel.ReferenceTo[0], err)
		}
		desc = next
	}
	return desc.GetField(segments[len(segments)-1]).OrEmpty().Type, nil
}

// condition renders field = value, or field IN (...) for slices. fieldType
// is the describe type of field, empty when unknown.
func condition(field, fieldType string, value any) (string, error) {
	v := reflect.ValueOf(value)
	if value != nil && v.Kind() == reflect.Slice {
		if v.Len() == 0 {
			return "", fmt.Errorf("%w: empty IN list for %s", ErrInvalidQuery, field)
		}
		items := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			lit, err := literal(v.Index(i).Interface(), fieldType)
			if err != nil {
				return "", fmt.Errorf("%s: %w", field, err)
			}
			items = append(items, lit)
		}
		return fmt.Sprintf("%s IN (%s)", field, strings.Join(items, ", ")), nil
	}

	lit, err := literal(value, fieldType)
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, err)
	}
	return fmt.Sprintf("%s = %s", field, lit), nil
}

var soqlEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

// literal renders a Go value as a SOQL literal. Times compared to date fields
// are written as dates, all others as UTC datetimes.
func literal(value any, fieldType string) (string, error) {
	switch v := value.(type) {
	case nil:
		return "null", nil
	case string:
		return "'" + soqlEscaper.Replace(v) + "'", nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case time.Time:
		if fieldType == "date" {
			return v.Format(time.DateOnly), nil
		}
		return v.UTC().Format("2006-01-02T15:04:05Z"), nil
	default:
		return "", fmt.Errorf("%w: unsupported literal %T", ErrInvalidQuery, value)
	}
}
