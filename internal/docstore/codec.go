package docstore

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// timeKey tags an encoded time.Time so it decodes back to a time and not a string.
const timeKey = "$time"

// Encode serializes a document to JSON, keeping timestamps typed.
func Encode(d Data) ([]byte, error) {
	enc, err := encodeValue(map[string]any(d))
	if err != nil {
		return nil, err
	}
	return json.Marshal(enc)
}

// Decode parses a document produced by Encode. Integral numbers come back as
// int64, other numbers as float64, and tagged timestamps as UTC time.Time.
func Decode(b []byte) (Data, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	out, _ := v.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}
	return Data(out), nil
}

func encodeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil, bool, string, int, int32, int64, float32, float64:
		return x, nil
	case time.Time:
		return map[string]any{timeKey: x.UTC().Format(time.RFC3339Nano)}, nil
	case Data:
		return encodeValue(map[string]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			if strings.HasPrefix(k, "$") {
				return nil, fmt.Errorf("field %q: names starting with $ are reserved", k)
			}
			enc, err := encodeValue(val)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", k, err)
			}
			out[k] = enc
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			enc, err := encodeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case []string:
		out := make([]any, len(x))
		for i, s := range x {
			out[i] = s
		}
		return out, nil
	}

	// Named string and integer types (enums, cells) are stored as their base value.
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	}
	return nil, fmt.Errorf("unsupported value type %T", v)
}

func decodeValue(v any) (any, error) {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, fmt.Errorf("decode number %q: %w", x, err)
		}
		return f, nil
	case map[string]any:
		if raw, ok := x[timeKey]; ok && len(x) == 1 {
			s, _ := raw.(string)
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("decode timestamp %q: %w", s, err)
			}
			return t.UTC(), nil
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			dec, err := decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[k] = dec
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			dec, err := decodeValue(val)
			if err != nil {
				return nil, err
			}
			out[i] = dec
		}
		return out, nil
	default:
		return x, nil
	}
}
