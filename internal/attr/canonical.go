package attr

import (
	"bytes"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// storeIDField marks the JSON encoding of an unresolved StoreID:
// {"$store_id": n}, or {"$store_id": n, "$table": "posts"} when the origin
// table is known.
const (
	storeIDField    = "$store_id"
	storeTableField = "$table"
)

// MarshalCanonical produces canonical JSON for a value.
//
// This is the serialization used for persisted records. Differences from
// json.Marshal:
//  1. Object keys sorted by UTF-16 code units (RFC 8785), not UTF-8 bytes
//  2. No HTML escaping
//  3. Absent values encode as null
//  4. Unresolved StoreIDs encode as {"$store_id": n} (plus "$table" when
//     the origin is known); resolved ones as their resolved value
//
// Strings are written byte for byte, so decoding the output yields a value
// Equal to v. NaN and infinite floats are rejected.
func MarshalCanonical(v Value) ([]byte, error) {
	return canonicalEncoder{}.marshal(v)
}

// MarshalNormalized is MarshalCanonical with every string and key NFC
// normalized first. Golden traces use it so canonically equivalent text
// produces identical files. Its output is not a faithful copy of v.
func MarshalNormalized(v Value) ([]byte, error) {
	return canonicalEncoder{nfc: true}.marshal(v)
}

type canonicalEncoder struct {
	nfc bool
}

func (e canonicalEncoder) marshal(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.write(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (e canonicalEncoder) write(buf *bytes.Buffer, v Value) error {
	switch val := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case String:
		e.writeString(buf, string(val))
	case Int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case Float:
		f := float64(val)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("cannot encode non-finite float %v", f)
		}
		buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(val)))
	case *StoreID:
		if val.resolved {
			return e.write(buf, val.value)
		}
		buf.WriteString(`{"` + storeIDField + `":`)
		buf.WriteString(strconv.FormatInt(val.seq, 10))
		if val.table != "" {
			buf.WriteString(`,"` + storeTableField + `":`)
			e.writeString(buf, val.table)
		}
		buf.WriteByte('}')
	case List:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.write(buf, elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case Map:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		slices.SortFunc(keys, func(a, b string) int {
			return compareKeysUTF16(e.text(a), e.text(b))
		})

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.writeString(buf, k)
			buf.WriteByte(':')
			if err := e.write(buf, val[k]); err != nil {
				return fmt.Errorf("map[%q]: %w", k, err)
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unsupported attribute type: %T", v)
	}
	return nil
}

func (e canonicalEncoder) text(s string) string {
	if e.nfc {
		return norm.NFC.String(s)
	}
	return s
}

// writeString writes a JSON string. Only the quote, backslash and control
// characters are escaped.
func (e canonicalEncoder) writeString(buf *bytes.Buffer, s string) {
	s = e.text(s)
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(buf, `\u%04x`, r)
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}

// compareKeysUTF16 orders strings by UTF-16 code units as RFC 8785
// requires. Go's native string order is UTF-8 and differs for characters
// outside the BMP.
func compareKeysUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
