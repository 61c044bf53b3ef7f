// Package canonical turns typed values into the plain, deterministic JSON
// shapes that cross the store and archive boundaries.
package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Plain converts v into nested map[string]any / []any / primitives by way of
// its JSON encoding. Numbers are kept as json.Number so no precision is lost.
func Plain(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("canonical decode: %w", err)
	}
	return out, nil
}

// ToMap is Plain for values that must encode as a JSON object.
func ToMap(v any) (map[string]any, error) {
	plain, err := Plain(v)
	if err != nil {
		return nil, err
	}
	m, ok := plain.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("canonical: %T does not encode as an object", v)
	}
	return m, nil
}

// Marshal returns deterministic JSON: object keys sorted, array order kept.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if vv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(vv.String())
	case float64:
		b, _ := json.Marshal(vv)
		buf.Write(b)
	case string:
		b, _ := json.Marshal(vv)
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, elem := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			buf.Write(kb)
			buf.WriteByte(':')
			if err := encode(buf, vv[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		plain, err := Plain(vv)
		if err != nil {
			return err
		}
		return encode(buf, plain)
	}
	return nil
}
