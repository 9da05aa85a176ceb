package ir

import (
	"errors"
	"fmt"
)

// Linkage controls whether a module-level constant is visible outside the
// module (exported) or private to it.
type Linkage byte

const (
	LinkagePrivate Linkage = iota
	LinkageExported
)

// ModuleConst is a named constant blob owned by a Module.
type ModuleConst struct {
	Name    string
	Bytes   []byte
	Linkage Linkage
}

// Module is an unordered mapping from function name to function, plus a set
// of named constants.
type Module struct {
	functions map[string]*Function
	order     []string // insertion order, for deterministic iteration
	Consts    map[string]ModuleConst
}

// NewModule creates an empty module.
func NewModule() *Module {
	return &Module{functions: map[string]*Function{}, Consts: map[string]ModuleConst{}}
}

// Add inserts a function. Adding a name that is already present replaces
// the earlier function and keeps its place in the order; Verify does not
// report the replaced duplicate.
func (m *Module) Add(name string, sig Signature) *Function {
	f := NewFunction(name, sig)
	f.SetCalleeResolver(func(callee string) (Signature, bool) {
		other, ok := m.functions[callee]
		if !ok {
			return Signature{}, false
		}
		return other.Sig, true
	})
	if _, dup := m.functions[name]; !dup {
		m.order = append(m.order, name)
	}
	m.functions[name] = f
	return f
}

// AddConst registers a named constant blob.
func (m *Module) AddConst(name string, bytes []byte, linkage Linkage) {
	m.Consts[name] = ModuleConst{Name: name, Bytes: bytes, Linkage: linkage}
}

// Function looks up a function by name.
func (m *Module) Function(name string) (*Function, bool) {
	f, ok := m.functions[name]
	return f, ok
}

// Functions returns every function in deterministic (insertion) order.
func (m *Module) Functions() []*Function {
	out := make([]*Function, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.functions[name])
	}
	return out
}

// Verify aggregates per-function verification. It is deterministic and
// order-independent over independent functions: every function is checked
// regardless of whether an earlier one failed, and the resulting error set
// does not depend on map iteration order because functions are walked in
// insertion order and joined with errors.Join (which preserves argument
// order but whose caller never depends on the encounter order across
// independent functions for correctness, only for message ordering).
func (m *Module) Verify() error {
	seen := map[string]bool{}
	var errs []error
	for _, name := range m.order {
		if seen[name] {
			errs = append(errs, fmt.Errorf("error: duplicate function name %q", name))
			continue
		}
		seen[name] = true
		if err := m.functions[name].Verify(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
