package attr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// MarshalJSON implements json.Marshaler for List using canonical encoding.
func (l List) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(l)
}

// MarshalJSON implements json.Marshaler for Map using canonical encoding.
func (m Map) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(m)
}

// MarshalJSON implements json.Marshaler for StoreID.
func (id *StoreID) MarshalJSON() ([]byte, error) {
	return MarshalCanonical(id)
}

// UnmarshalJSON implements json.Unmarshaler for Map.
func (m *Map) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	obj, ok := v.(Map)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*m = obj
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	v, err := UnmarshalValue(data)
	if err != nil {
		return err
	}
	arr, ok := v.(List)
	if !ok {
		return fmt.Errorf("expected JSON array, got %T", v)
	}
	*l = arr
	return nil
}

// UnmarshalValue decodes JSON into a Value.
//
// Integral numbers become Int, other numbers Float. An object of the exact
// form {"$store_id": n} or {"$store_id": n, "$table": "t"} becomes an
// unresolved StoreID.
func UnmarshalValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return convertJSON(raw)
}

// UnmarshalMap decodes a JSON object into an attribute map.
func UnmarshalMap(data []byte) (Map, error) {
	var m Map
	if err := m.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return m, nil
}

// FromJSON converts a value decoded by encoding/json (or a YAML decoder
// producing the same shapes) into a Value.
func FromJSON(raw any) (Value, error) {
	return convertJSON(raw)
}

func convertJSON(raw any) (Value, error) {
	switch val := raw.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %s: %w", val, err)
		}
		return Float(f), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		return Float(val), nil
	case []any:
		l := make(List, len(val))
		for i, elem := range val {
			av, err := convertJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			l[i] = av
		}
		return l, nil
	case map[string]any:
		if id, ok := storeIDFromJSON(val); ok {
			return id, nil
		}
		m := make(Map, len(val))
		for k, elem := range val {
			av, err := convertJSON(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = av
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported JSON type: %T", raw)
	}
}

func storeIDFromJSON(obj map[string]any) (*StoreID, bool) {
	raw, ok := obj[storeIDField]
	if !ok {
		return nil, false
	}
	var table string
	switch len(obj) {
	case 1:
	case 2:
		name, ok := obj[storeTableField].(string)
		if !ok || name == "" {
			return nil, false
		}
		table = name
	default:
		return nil, false
	}
	var seq int64
	switch n := raw.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return nil, false
		}
		seq = i
	case int:
		seq = int64(n)
	case int64:
		seq = n
	default:
		return nil, false
	}
	return &StoreID{seq: seq, table: table}, true
}
