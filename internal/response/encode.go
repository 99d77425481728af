package response

import (
	"fmt"
	"reflect"
	"time"

	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/tbourn/go-property-filter/internal/apperr"
)

// Encode serializes v to a JSON string. Only a closed set of value kinds is
// accepted: nil, booleans, strings, Go numeric kinds, json.Number,
// decimal.Decimal (rendered as a float), time.Time (RFC 3339), sequences,
// string-keyed mappings, pointers to any of those, and Maskable values (via
// ToMap).
// Anything else yields an Internal AppError.
func Encode(v any) (string, error) {
	norm, err := normalize(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(norm)
	if err != nil {
		return "", apperr.Internal(
			apperr.WithRootCauses(map[string]any{"message": err.Error()}),
			apperr.WithCause(err),
		)
	}
	return string(b), nil
}

func normalize(v any) (any, error) {
	switch t := v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return t, nil
	case json.Number:
		if _, err := t.Float64(); err != nil {
			return nil, notSerializable(v)
		}
		return t, nil
	case decimal.Decimal:
		f, _ := t.Float64()
		return f, nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case Maskable:
		return normalize(t.ToMap())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return normalize(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil, nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			n, err := normalize(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, notSerializable(v)
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			n, err := normalize(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			out[iter.Key().String()] = n
		}
		return out, nil
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	}
	return nil, notSerializable(v)
}

func notSerializable(v any) error {
	msg := fmt.Sprintf("Object of type %T is not JSON serializable", v)
	return apperr.Internal(apperr.WithRootCauses(map[string]any{"message": msg}))
}
