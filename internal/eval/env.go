// Package eval runs a compiled script.Pipeline against a dom.Cursor and
// an Environment, producing either an element cursor/set or a string
// value.
package eval

// Environment threads runtime parameters through a workflow run. Values
// are string lists (the Workflow data model's env shape); placeholder
// substitution in scripts always resolves to the first element of the
// bound list, matching document order of however the binding was built.
type Environment struct {
	values map[string][]string
}

// NewEnvironment builds an Environment from an initial set of
// name -> value-list bindings, matching a workflow's `env` block.
func NewEnvironment(initial map[string][]string) Environment {
	values := make(map[string][]string, len(initial))
	for k, v := range initial {
		cp := make([]string, len(v))
		copy(cp, v)
		values[k] = cp
	}
	return Environment{values: values}
}

// Lookup returns the full bound list for name.
func (e Environment) Lookup(name string) ([]string, bool) {
	v, ok := e.values[name]
	return v, ok
}

// First returns the first bound value for name, or false if the name is
// unbound or bound to an empty list.
func (e Environment) First(name string) (string, bool) {
	v, ok := e.values[name]
	if !ok || len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// With returns a new Environment with name bound to values, leaving the
// receiver untouched. Child nodes use this to layer sibling bindings on
// top of the parent environment (§3: "child nodes inherit the parent
// environment plus bindings from sibling extractions already completed").
func (e Environment) With(name string, values []string) Environment {
	next := make(map[string][]string, len(e.values)+1)
	for k, v := range e.values {
		next[k] = v
	}
	cp := make([]string, len(values))
	copy(cp, values)
	next[name] = cp
	return Environment{values: next}
}

// WithString is a convenience for binding a single scalar value.
func (e Environment) WithString(name, value string) Environment {
	return e.With(name, []string{value})
}
