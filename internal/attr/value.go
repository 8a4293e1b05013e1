package attr

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"strconv"
)

// Value is a sealed interface representing attribute values.
// Only Null, String, Int, Float, Bool, List, Map and *StoreID implement it.
// A nil Value means the attribute is absent.
type Value interface {
	attrValue() // Sealed - only these types implement it
}

// Null represents an explicit JSON null.
type Null struct{}

func (Null) attrValue() {}

// String is a string attribute value.
type String string

func (String) attrValue() {}

// Int is an integer attribute value.
type Int int64

func (Int) attrValue() {}

// Float is a floating point attribute value.
type Float float64

func (Float) attrValue() {}

// Bool is a boolean attribute value.
type Bool bool

func (Bool) attrValue() {}

// List is an ordered collection of values. It is the right-hand side of an
// In predicate.
type List []Value

func (List) attrValue() {}

// Map is a record's attribute map: attribute name to value.
// The record identifier is stored under IDKey.
type Map map[string]Value

func (Map) attrValue() {}

// View is a joined row: table name to that table's attribute map.
// A single-table row is a View with one entry.
type View map[string]Map

// IDKey is the attribute holding a record's identifier.
const IDKey = "id"

// ID returns the record identifier, or nil when the record has none.
func (m Map) ID() Value {
	if m == nil {
		return nil
	}
	return m[IDKey]
}

// Clone returns a shallow copy of the map. StoreID pointers are shared so
// that resolving an identifier is visible through every copy.
func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// SortedKeys returns the attribute names in lexical order.
func (m Map) SortedKeys() []string {
	keys := slices.Collect(maps.Keys(m))
	slices.Sort(keys)
	return keys
}

// Equal reports whether two attribute maps hold equal values under the same
// attribute names.
func (m Map) Equal(other Map) bool {
	if len(m) != len(other) {
		return false
	}
	for k, v := range m {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// Merge returns a shallow merge of two views. Tables present in both take
// the right-hand map.
func (v View) Merge(other View) View {
	out := make(View, len(v)+len(other))
	maps.Copy(out, v)
	maps.Copy(out, other)
	return out
}

// IsNil reports whether v is absent or an explicit Null.
func IsNil(v Value) bool {
	switch v.(type) {
	case nil, Null:
		return true
	}
	return false
}

// Truthy reports whether v counts as true in a boolean context.
// Absent, Null and Bool(false) are falsy; everything else is truthy.
func Truthy(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return false
	case Bool:
		return bool(val)
	}
	return true
}

// From converts a Go value into a Value.
// Supported inputs are nil, Values, strings, all integer kinds, floats,
// bools, named types of those kinds, slices, arrays and string-keyed maps
// of supported inputs, and pointers to any of them.
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case *StoreID:
		if val == nil {
			return nil, nil
		}
		return val, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		return fromUint(uint64(val))
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		return fromUint(val)
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case bool:
		return Bool(val), nil
	case []Value:
		return List(val), nil
	case []any:
		return fromSlice(val)
	case []string:
		return fromSlice(val)
	case []int:
		return fromSlice(val)
	case []int64:
		return fromSlice(val)
	case map[string]Value:
		return Map(val), nil
	case map[string]any:
		m := make(Map, len(val))
		for k, elem := range val {
			av, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = av
		}
		return m, nil
	default:
		return fromReflect(reflect.ValueOf(v))
	}
}

// fromReflect handles inputs outside the common cases: slices, arrays and
// string-keyed maps of any convertible element type, and named types whose
// underlying kind is supported.
func fromReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return fromUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return List{}, nil
		}
		l := make(List, rv.Len())
		for i := range l {
			av, err := From(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			l[i] = av
		}
		return l, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(Map, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			av, err := From(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("map[%q]: %w", k, err)
			}
			m[k] = av
		}
		return m, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return From(rv.Elem().Interface())
	}
	if rv.IsValid() {
		return nil, fmt.Errorf("unsupported attribute type: %s", rv.Type())
	}
	return nil, fmt.Errorf("unsupported attribute type: %v", rv)
}

// Of is like From but panics on unsupported input. It is meant for
// literals written in code, where an unsupported type is a programming error.
func Of(v any) Value {
	av, err := From(v)
	if err != nil {
		panic(fmt.Sprintf("attr.Of: %v", err))
	}
	return av
}

// MapOf converts a Go map into an attribute map, panicking on unsupported
// values. Intended for tests and literals.
func MapOf(m map[string]any) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Of(v)
	}
	return out
}

func fromUint(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("integer out of range: %d", u)
	}
	return Int(int64(u)), nil
}

func fromSlice[T any](s []T) (Value, error) {
	l := make(List, len(s))
	for i, elem := range s {
		av, err := From(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		l[i] = av
	}
	return l, nil
}

// Format renders a value for humans: strings unquoted, StoreIDs in their
// T-n form, composites as JSON.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<absent>"
	case Null:
		return "null"
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case *StoreID:
		return val.String()
	default:
		b, err := MarshalCanonical(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}
