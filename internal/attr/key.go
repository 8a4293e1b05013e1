package attr

import (
	"strconv"
	"strings"
)

// keyEscape prefixes string keys that could be mistaken for another form.
const keyEscape = "~"

// Key returns the string used to address a row by its identifier.
//
// Identifiers that compare equal produce the same key: Int(2), String("2")
// and a StoreID resolved to 2 all map to "2". Unresolved StoreIDs map to
// their "T-n" form. Strings are used byte for byte, except that strings
// starting with "T-" or "~" gain a "~" prefix, so String("T-1") never
// addresses the row of an unresolved identifier.
func Key(id Value) string {
	switch v := id.(type) {
	case nil, Null:
		return ""
	case String:
		s := string(v)
		if strings.HasPrefix(s, keyEscape) || strings.HasPrefix(s, unresolvedPrefix) {
			return keyEscape + s
		}
		return s
	case Int:
		return strconv.FormatInt(int64(v), 10)
	case Float:
		if f := float64(v); f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(v))
	case *StoreID:
		if v.resolved {
			return Key(v.value)
		}
		return v.String()
	default:
		b, err := MarshalCanonical(id)
		if err != nil {
			return Format(id)
		}
		return string(b)
	}
}
