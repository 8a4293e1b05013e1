package query

import (
	"slices"
	"strings"

	"github.com/roach88/shelf/internal/attr"
)

// Direction is an ordering direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// Ordering sorts by one field of the primary table.
type Ordering struct {
	Field     string
	Direction Direction
}

func (o Ordering) String() string {
	return o.Field + " " + o.Direction.String()
}

// ParseOrder parses a comma-separated list of "field[ asc|desc]" tokens.
// Directions are case-insensitive and default to ascending. Any other
// token shape is a ConfigError.
func ParseOrder(spec string) ([]Ordering, error) {
	var out []Ordering
	for _, token := range strings.Split(spec, ",") {
		parts := strings.Fields(token)
		switch len(parts) {
		case 1:
			out = append(out, Ordering{Field: parts[0], Direction: Asc})
		case 2:
			switch strings.ToLower(parts[1]) {
			case "asc":
				out = append(out, Ordering{Field: parts[0], Direction: Asc})
			case "desc":
				out = append(out, Ordering{Field: parts[0], Direction: Desc})
			default:
				return nil, configErrorf("order", "unknown direction %q in %q", parts[1], spec)
			}
		default:
			return nil, configErrorf("order", "cannot parse order token %q in %q", strings.TrimSpace(token), spec)
		}
	}
	return out, nil
}

// CompareRows orders two rows by the first ordering field on which they
// differ. When exactly one side is nil-like at that field, it sorts after
// the other regardless of direction.
func CompareRows(a, b attr.Map, orderings []Ordering) int {
	for _, o := range orderings {
		av, bv := a[o.Field], b[o.Field]
		if attr.Equal(av, bv) {
			continue
		}

		aNil, bNil := attr.IsNil(av), attr.IsNil(bv)
		switch {
		case aNil && !bNil:
			return 1
		case bNil && !aNil:
			return -1
		}

		c := attr.Compare(av, bv)
		if c == 0 {
			continue
		}
		if o.Direction == Desc {
			return -c
		}
		return c
	}
	return 0
}

// SortRows stably sorts rows in place.
func SortRows(rows []attr.Map, orderings []Ordering) {
	if len(orderings) == 0 {
		return
	}
	slices.SortStableFunc(rows, func(a, b attr.Map) int {
		return CompareRows(a, b, orderings)
	})
}

// FormatOrder renders orderings back into the ParseOrder syntax.
func FormatOrder(orderings []Ordering) string {
	parts := make([]string, len(orderings))
	for i, o := range orderings {
		parts[i] = o.String()
	}
	return strings.Join(parts, ", ")
}
