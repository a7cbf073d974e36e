package mapper

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/natserract/sfmapper/pkg/salesforce"
)

// decode fills the struct result points to from a raw record
func (m *Mapper) decode(record map[string]any, result any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          tagName,
		WeaklyTypedInput: true,
		Result:           result,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			subQueryHook,
			mapstructure.StringToSliceHookFunc(";"),
			timeHook,
			numberHook,
			m.recordHook,
		),
	})
	if err != nil {
		return err
	}
	return decoder.Decode(record)
}

// recordHook rekeys a record by the field names of the target struct, so
// that field matching is case-insensitive yet deterministic.
func (m *Mapper) recordHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Struct || to == timeType {
		return data, nil
	}
	raw, ok := asMap(data)
	if !ok {
		return data, nil
	}

	fields := m.fieldsOf(to)
	out := make(map[string]any, len(fields))
	for _, f := range fields {
		if v, ok := lookup(raw, f.name); ok {
			out[f.name] = v
		}
	}
	return out, nil
}

// subQueryHook unwraps a child relationship sub-query result, e.g.
// {"totalSize": 2, "done": true, "records": [...]}, into its records.
func subQueryHook(from, to reflect.Type, data any) (any, error) {
	if to.Kind() != reflect.Slice || from.Kind() != reflect.Map {
		return data, nil
	}
	raw, ok := asMap(data)
	if !ok {
		return data, nil
	}
	records, _ := lookup(raw, "records")
	if records == nil {
		return []any(nil), nil
	}
	return records, nil
}

func timeHook(from, to reflect.Type, data any) (any, error) {
	if to != timeType || from.Kind() != reflect.String {
		return data, nil
	}
	t, err := parseTime(data)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// numberHook rejects fractional and overflowing values for integer fields,
// accepts "12.0" as the SOAP API returns numbers, and keeps bools readable
// when stored in strings.
func numberHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var f float64
		switch from.Kind() {
		case reflect.Float32, reflect.Float64:
			f = reflect.ValueOf(data).Float()
		case reflect.String:
			s := reflect.ValueOf(data).String()
			if s == "" {
				return data, nil
			}
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				if reflect.Zero(to).OverflowInt(n) {
					return nil, fmt.Errorf("%d overflows %s", n, to)
				}
				return n, nil
			}
			parsed, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("cannot parse %q as an integer", s)
			}
			f = parsed
		default:
			return data, nil
		}
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return nil, fmt.Errorf("%v is not an integer", f)
		}
		n := int64(f)
		if reflect.Zero(to).OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, to)
		}
		return n, nil

	case reflect.String:
		if from.Kind() == reflect.Bool {
			return strconv.FormatBool(reflect.ValueOf(data).Bool()), nil
		}
	}
	return data, nil
}

// fieldError reports the top-level model field a decode error belongs to
func fieldError(model string, err error) error {
	var decodeErr *mapstructure.DecodeError
	if !errors.As(err, &decodeErr) {
		return fmt.Errorf("mapping %s: %w", model, err)
	}
	field := decodeErr.Name()
	if i := strings.IndexAny(field, ".["); i >= 0 {
		field = field[:i]
	}
	return &FieldError{Model: model, Field: field, Err: decodeErr.Unwrap()}
}

func asMap(raw any) (map[string]any, bool) {
	switch v := raw.(type) {
	case map[string]any:
		return v, true
	case salesforce.Record:
		return v, true
	default:
		return nil, false
	}
}
