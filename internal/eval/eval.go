package eval

import (
	"fmt"
	"strings"

	"github.com/jav-tidy/javtidy/internal/dom"
	"github.com/jav-tidy/javtidy/internal/script"
)

// Result is the outcome of running a ValueProducing pipeline: either a
// single scalar string or a list, per the cardinality rules applied at
// the end of Evaluate (split always forces a list). An
// ElementProducing pipeline instead leaves
// its result in Cursors, for the workflow runner to recurse into.
type Result struct {
	IsList  bool
	Scalar  string
	List    []string
	Cursors []dom.Cursor
}

// Strings normalizes a value Result to the []string shape Environment
// bindings expect, regardless of whether it was scalar or list.
func (r Result) Strings() []string {
	if r.IsList {
		return r.List
	}
	return []string{r.Scalar}
}

// pair keeps an extracted value aligned with the cursor it came from, so
// a condition step's filter and a reopened selector step both know which
// element to resume from.
type pair struct {
	cursor dom.Cursor
	value  string
}

// Evaluate runs a compiled pipeline starting at cursor, against env for
// placeholder resolution. The returned Result's shape (Cursors vs
// Scalar/List) matches pipeline.Type.
func Evaluate(pipeline *script.Pipeline, start dom.Cursor, env Environment) (Result, error) {
	cursors := []dom.Cursor{start}
	var pairs []pair
	hasValues := false
	forceList := false

	for _, step := range pipeline.Steps {
		switch step.Kind {
		case script.KindSelector:
			base := cursors
			if hasValues {
				base = make([]dom.Cursor, len(pairs))
				for i, p := range pairs {
					base[i] = p.cursor
				}
			}
			next, err := applySelector(step, base, env)
			if err != nil {
				return Result{}, err
			}
			cursors = next
			pairs = nil
			hasValues = false

		case script.KindAccessor:
			pairs = make([]pair, len(cursors))
			if len(cursors) == 0 {
				pairs = []pair{{cursor: dom.Cursor{}, value: ""}}
			} else {
				for i, c := range cursors {
					v, err := applyAccessor(step, c, env)
					if err != nil {
						return Result{}, err
					}
					pairs[i] = pair{cursor: c, value: v}
				}
			}
			hasValues = true

		case script.KindTransform:
			if step.Op == "split" {
				sep, err := resolveArg(step.Args[0], env)
				if err != nil {
					return Result{}, err
				}
				var next []pair
				for _, p := range pairs {
					for _, piece := range strings.Split(p.value, sep) {
						next = append(next, pair{cursor: p.cursor, value: piece})
					}
				}
				pairs = next
				forceList = true
				continue
			}
			for i, p := range pairs {
				v, err := applyTransform(step.Op, step.Args, env, p.value)
				if err != nil {
					return Result{}, err
				}
				pairs[i].value = v
			}

		case script.KindCondition:
			var next []pair
			for _, p := range pairs {
				ok, err := evalCondition(step.Op, step.Args, env, p.value)
				if err != nil {
					return Result{}, err
				}
				if ok {
					next = append(next, p)
				}
			}
			pairs = next
		}
	}

	if pipeline.Type == script.ElementProducing {
		return Result{Cursors: cursors}, nil
	}

	switch {
	case len(pairs) == 0:
		return Result{Scalar: ""}, nil
	case len(pairs) == 1 && !forceList:
		return Result{Scalar: pairs[0].value}, nil
	default:
		vals := make([]string, len(pairs))
		for i, p := range pairs {
			vals[i] = p.value
		}
		return Result{IsList: true, List: vals}, nil
	}
}

// applySelector runs one selector step over every cursor in base,
// concatenating results in document order per originating cursor.
func applySelector(step script.Step, base []dom.Cursor, env Environment) ([]dom.Cursor, error) {
	switch step.Op {
	case "select":
		raw, err := resolveArg(step.Args[0], env)
		if err != nil {
			return nil, err
		}
		sel, err := dom.CompileSelector(raw)
		if err != nil {
			return nil, err
		}
		var out []dom.Cursor
		for _, c := range base {
			out = append(out, c.Select(sel).Cursors()...)
		}
		return out, nil
	case "parent":
		n := step.Args[0].Int
		out := make([]dom.Cursor, len(base))
		for i, c := range base {
			out[i] = c.Parent(n)
		}
		return out, nil
	case "prev":
		n := step.Args[0].Int
		out := make([]dom.Cursor, len(base))
		for i, c := range base {
			out[i] = c.Prev(n)
		}
		return out, nil
	case "nth":
		n := step.Args[0].Int
		out := make([]dom.Cursor, len(base))
		for i, c := range base {
			out[i] = c.Nth(n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("eval: unknown selector op %q", step.Op)
	}
}

// applyAccessor converts a single cursor to its string value.
func applyAccessor(step script.Step, c dom.Cursor, env Environment) (string, error) {
	switch step.Op {
	case "html":
		return c.Html()
	case "attr":
		name, err := resolveArg(step.Args[0], env)
		if err != nil {
			return "", err
		}
		return c.Attr(name), nil
	case "val":
		return c.Val(), nil
	default:
		return "", fmt.Errorf("eval: unknown accessor op %q", step.Op)
	}
}
