package attr

import (
	"cmp"
	"strconv"
	"strings"
)

// Equal reports whether two values are equal.
//
// Rules:
//   - absent and Null are equal to each other and to nothing else
//   - Int and Float compare numerically (Int(1) equals Float(1))
//   - an unresolved StoreID equals only an unresolved StoreID with the same
//     sequence number
//   - a resolved StoreID equals any value whose text matches its resolved
//     value (resolved to 2, it equals Int(2) and String("2"))
//   - Lists and Maps compare element-wise
func Equal(a, b Value) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if id, ok := a.(*StoreID); ok {
		return id.equal(b)
	}
	if id, ok := b.(*StoreID); ok {
		return id.equal(a)
	}

	switch x := a.(type) {
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return Float(x) == y
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return x == y
		case Int:
			return x == Float(y)
		}
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		return ok && x.Equal(y)
	}
	return false
}

// Compare returns -1, 0 or +1 ordering a before, equal to, or after b.
//
// Compare is total so that sorting never panics: nil-like values sort
// first, numbers compare numerically, strings lexically, false before true,
// lists lexicographically. Unresolved StoreIDs sort below every resolved
// identifier and among themselves by creation sequence. Values of unrelated
// kinds order by kind; that order is stable but carries no meaning.
func Compare(a, b Value) int {
	an, bn := IsNil(a), IsNil(b)
	switch {
	case an && bn:
		return 0
	case an:
		return -1
	case bn:
		return 1
	}

	if id, ok := a.(*StoreID); ok {
		return id.compare(b)
	}
	if id, ok := b.(*StoreID); ok {
		return -id.compare(a)
	}

	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return cmp.Compare(x, y)
		case Float:
			return cmp.Compare(float64(x), float64(y))
		}
	case Float:
		switch y := b.(type) {
		case Float:
			return cmp.Compare(x, y)
		case Int:
			return cmp.Compare(float64(x), float64(y))
		}
	case String:
		if y, ok := b.(String); ok {
			return strings.Compare(string(x), string(y))
		}
	case Bool:
		if y, ok := b.(Bool); ok {
			return cmp.Compare(boolRank(x), boolRank(y))
		}
	case List:
		if y, ok := b.(List); ok {
			for i := 0; i < len(x) && i < len(y); i++ {
				if c := Compare(x[i], y[i]); c != 0 {
					return c
				}
			}
			return cmp.Compare(len(x), len(y))
		}
	}
	return cmp.Compare(kindRank(a), kindRank(b))
}

// Less reports whether a sorts before b.
func Less(a, b Value) bool {
	return Compare(a, b) < 0
}

func boolRank(b Bool) int {
	if b {
		return 1
	}
	return 0
}

func kindRank(v Value) int {
	switch v.(type) {
	case nil, Null:
		return 0
	case *StoreID:
		return 1
	case Int, Float:
		return 2
	case String:
		return 3
	case Bool:
		return 4
	case List:
		return 5
	case Map:
		return 6
	}
	return 7
}

// scalarText returns the text form used for loose identifier comparison.
func scalarText(v Value) (string, bool) {
	switch val := v.(type) {
	case String:
		return string(val), true
	case Int:
		return strconv.FormatInt(int64(val), 10), true
	}
	return "", false
}

// looseEqual compares identifier values across String and Int kinds.
func looseEqual(a, b Value) bool {
	if Equal(a, b) {
		return true
	}
	at, aok := scalarText(a)
	bt, bok := scalarText(b)
	return aok && bok && at == bt
}

// looseCompare orders identifier values, comparing numeric strings against
// integers numerically.
func looseCompare(a, b Value) int {
	switch x := a.(type) {
	case Int:
		if s, ok := b.(String); ok {
			if n, err := strconv.ParseInt(string(s), 10, 64); err == nil {
				return cmp.Compare(int64(x), n)
			}
		}
	case String:
		if y, ok := b.(Int); ok {
			if n, err := strconv.ParseInt(string(x), 10, 64); err == nil {
				return cmp.Compare(n, int64(y))
			}
		}
	}
	return Compare(a, b)
}
