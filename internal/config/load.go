package config

import (
	_ "embed"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"

	"github.com/roach88/qrewrite/internal/ast"
)

//go:embed schema.cue
var schemaSource string

// Load reads a configuration from a CUE file or a directory holding a
// CUE package. The configuration lives under the top-level "query" field;
// absent fields take their schema defaults.
func Load(path string) (*Query, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, ast.NewConfigError("reading config: %v", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, ast.NewConfigError("no CUE instances in %s", path)
		}
		if instances[0].Err != nil {
			return nil, formatCUEError(instances[0].Err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, ast.NewConfigError("reading config: %v", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("query")))
}

// Parse compiles configuration from CUE source text.
func Parse(src string) (*Query, error) {
	v := cuecontext.New().CompileString(src)
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return Compile(v.LookupPath(cue.ParsePath("query")))
}

// Compile unifies v with the #Query schema and extracts a validated
// Query. A value that does not exist yields the defaults.
func Compile(v cue.Value) (*Query, error) {
	ctx := v.Context()
	if ctx == nil {
		ctx = cuecontext.New()
	}
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Query"))

	unified := def
	if v.Exists() {
		unified = def.Unify(v)
	}
	if err := unified.Validate(); err != nil {
		return nil, formatCUEError(err)
	}

	q := &Query{}
	var err error
	if q.MaxValueExpansion, err = intField(unified, "max_value_expansion"); err != nil {
		return nil, err
	}
	if q.MaxUnfieldedExpansion, err = intField(unified, "max_unfielded_expansion"); err != nil {
		return nil, err
	}
	if q.FailOnUnfieldedOverflow, err = field(unified, "fail_on_unfielded_overflow").Bool(); err != nil {
		return nil, formatCUEError(err)
	}
	if q.AnyField, err = field(unified, "any_field").String(); err != nil {
		return nil, formatCUEError(err)
	}
	if q.PushdownPatterns, err = stringList(unified, "pushdown_patterns"); err != nil {
		return nil, err
	}
	if q.Rules, err = stringList(unified, "rules"); err != nil {
		return nil, err
	}
	if q.IndexedFields, err = stringList(unified, "indexed_fields"); err != nil {
		return nil, err
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}
	return q, nil
}

// field looks up name and resolves its default.
func field(v cue.Value, name string) cue.Value {
	f := v.LookupPath(cue.ParsePath(name))
	if d, ok := f.Default(); ok {
		return d
	}
	return f
}

func intField(v cue.Value, name string) (int, error) {
	n, err := field(v, name).Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

func stringList(v cue.Value, name string) ([]string, error) {
	iter, err := field(v, name).List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := []string{}
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

// formatCUEError converts a CUE error into a configuration error that
// carries the first position, if any.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return ast.NewConfigError("%v", err)
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		pos := positions[0]
		return ast.NewConfigError("%s:%d:%d: %v", pos.Filename(), pos.Line(), pos.Column(), first)
	}
	return ast.NewConfigError("%v", first)
}
