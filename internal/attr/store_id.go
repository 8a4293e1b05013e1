package attr

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
)

// UnresolvedBase offsets the ordering key of unresolved identifiers so that
// every unresolved StoreID sorts below any plausible server identifier while
// unresolved identifiers still order by creation sequence.
const UnresolvedBase int64 = -1 << 62

// unresolvedPrefix starts the String and Key form of an unresolved
// identifier.
const unresolvedPrefix = "T-"

// ErrAlreadyResolved is returned when resolving an identifier twice.
var ErrAlreadyResolved = errors.New("store id already resolved")

// StoreID is a client-generated record identifier that is later resolved to
// the identifier assigned by the server.
//
// A StoreID is born unresolved with a sequence number from a Generator.
// ResolveTo fixes its final value exactly once. The transition is in place:
// every record holding the same *StoreID observes the resolved value.
//
// Use the pointer; copying a StoreID by value detaches it from later
// resolution.
//
// A StoreID may name the table whose generator issued it. Durable stores
// record it on identifiers held outside their own table so a reference can
// be resolved after it has been written and read back.
type StoreID struct {
	seq      int64
	table    string
	value    Value
	resolved bool
}

func (*StoreID) attrValue() {}

// NewStoreID returns an unresolved identifier with the given sequence number.
func NewStoreID(seq int64) *StoreID {
	return &StoreID{seq: seq}
}

// InTable returns a detached unresolved copy that names table as its
// origin.
func (id *StoreID) InTable(table string) *StoreID {
	return &StoreID{seq: id.seq, table: table}
}

// Table returns the originating table, or "" when unknown.
func (id *StoreID) Table() string {
	return id.table
}

// Seq returns the creation sequence number.
func (id *StoreID) Seq() int64 {
	return id.seq
}

// Resolved reports whether the identifier has a final value.
func (id *StoreID) Resolved() bool {
	return id.resolved
}

// Value returns the resolved value, or nil while unresolved.
func (id *StoreID) Value() Value {
	if !id.resolved {
		return nil
	}
	return id.value
}

// ResolveTo fixes the final identifier value. It fails if the identifier is
// already resolved or if v is not a usable identifier.
func (id *StoreID) ResolveTo(v Value) error {
	if id.resolved {
		return fmt.Errorf("resolve %s: %w", id, ErrAlreadyResolved)
	}
	if other, ok := v.(*StoreID); ok {
		if !other.resolved {
			return fmt.Errorf("resolve %s: cannot resolve to unresolved %s", id, other)
		}
		v = other.value
	}
	if IsNil(v) {
		return fmt.Errorf("resolve %s: resolved value is nil", id)
	}
	id.value = v
	id.resolved = true
	return nil
}

// Dup returns a fresh unresolved identifier with the same sequence number
// and origin table.
func (id *StoreID) Dup() *StoreID {
	return &StoreID{seq: id.seq, table: id.table}
}

// String returns "T-n" while unresolved and the resolved value afterwards.
func (id *StoreID) String() string {
	if id.resolved {
		return Format(id.value)
	}
	return unresolvedPrefix + strconv.FormatInt(id.seq, 10)
}

// SortKey returns the ordering key of an unresolved identifier.
func (id *StoreID) SortKey() int64 {
	return UnresolvedBase + id.seq
}

func (id *StoreID) equal(other Value) bool {
	o, isID := other.(*StoreID)
	if !id.resolved {
		return isID && !o.resolved && o.seq == id.seq && sameOrigin(id.table, o.table)
	}
	if isID {
		return o.resolved && looseEqual(id.value, o.value)
	}
	return looseEqual(id.value, other)
}

func (id *StoreID) compare(other Value) int {
	o, isID := other.(*StoreID)
	if !id.resolved {
		if isID && !o.resolved {
			if c := cmp.Compare(id.seq, o.seq); c != 0 || sameOrigin(id.table, o.table) {
				return c
			}
			return cmp.Compare(id.table, o.table)
		}
		return -1
	}
	if isID {
		if !o.resolved {
			return 1
		}
		return looseCompare(id.value, o.value)
	}
	return looseCompare(id.value, other)
}

// sameOrigin treats an unknown origin as matching any table.
func sameOrigin(a, b string) bool {
	return a == "" || b == "" || a == b
}
