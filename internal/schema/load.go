package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// LoadError is a schema problem with its CUE source position, when known.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Load reads a schema from a CUE file or a directory holding a CUE package.
//
// The expected shape is:
//
//	table: posts: {
//		has_many: comments: {}
//		belongs_to: author: {table: "users", foreign_key: "writer_id"}
//	}
//
// table and foreign_key are optional; omitted values follow the naming
// conventions described on Association.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Field: "path", Message: err.Error()}
	}

	ctx := cuecontext.New()
	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &LoadError{Field: "path", Message: err.Error()}
		}
		return Compile(ctx.CompileBytes(data, cue.Filename(path)))
	}

	instances := load.Instances([]string{"."}, &load.Config{Dir: path})
	if len(instances) == 0 {
		return nil, &LoadError{Field: "path", Message: fmt.Sprintf("no CUE instances in %s", path)}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	return Compile(ctx.BuildInstance(inst))
}

// Compile builds a Schema from an already-evaluated CUE value.
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := New()
	tablesVal := v.LookupPath(cue.ParsePath("table"))
	if !tablesVal.Exists() {
		return s, nil
	}

	iter, err := tablesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		owner := iter.Label()
		s.AddTable(owner)
		if err := compileTable(s, owner, iter.Value()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func compileTable(s *Schema, owner string, v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}

	for iter.Next() {
		kind := Kind(iter.Label())
		if kind != HasMany && kind != BelongsTo {
			return &LoadError{
				Field:   "table." + owner,
				Message: fmt.Sprintf("unknown key %q (want has_many or belongs_to)", kind),
				Pos:     iter.Value().Pos(),
			}
		}

		assocIter, err := iter.Value().Fields()
		if err != nil {
			return formatCUEError(err)
		}
		for assocIter.Next() {
			a, err := compileAssociation(owner, kind, assocIter.Label(), assocIter.Value())
			if err != nil {
				return err
			}
			if err := s.Add(a); err != nil {
				return &LoadError{Field: a.Owner + "." + a.Name, Message: err.Error(), Pos: assocIter.Value().Pos()}
			}
		}
	}
	return nil
}

func compileAssociation(owner string, kind Kind, name string, v cue.Value) (Association, error) {
	a := Association{Owner: owner, Name: name, Kind: kind}
	field := fmt.Sprintf("table.%s.%s.%s", owner, kind, name)

	if v.IncompleteKind() != cue.StructKind {
		return a, &LoadError{Field: field, Message: "association must be a struct", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return a, formatCUEError(err)
	}
	for iter.Next() {
		str, err := iter.Value().String()
		if err != nil {
			return a, formatCUEError(err)
		}
		switch iter.Label() {
		case "table":
			a.Table = str
		case "foreign_key":
			a.ForeignKey = str
		default:
			return a, &LoadError{
				Field:   field,
				Message: fmt.Sprintf("unknown option %q", iter.Label()),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	return a, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}
