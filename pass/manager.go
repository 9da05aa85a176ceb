// Package pass implements the pass manager: a queue of block/function/
// module-scoped transforms run in sequence against an ir.Module, with an
// auto_max_optimize fixed-point wrapper for running a pass set until the
// module stops changing or a cap is hit.
package pass

import (
	"fmt"

	"github.com/loomgen/loomgen/internal/obslog"
	"github.com/loomgen/loomgen/ir"
)

// Scope is the granularity a Pass operates at.
type Scope byte

const (
	ScopeBlock Scope = iota
	ScopeFunction
	ScopeModule
)

// Pass is one transform. Apply reports whether it changed anything; the
// manager uses that only for logging; it never enforces a fixed point on a
// single run of the queue (that is auto_max_optimize's job).
type Pass interface {
	Name() string
	Scope() Scope
	Apply(m *ir.Module) bool
}

// blockPass/functionPass adapt a scope-specific function into the Pass
// interface, since most shipped passes only need one block or function at a
// time and re-deriving the module/function/block walk per pass would be
// repetitive boilerplate.
type blockPass struct {
	name string
	fn   func(fn *ir.Function, b *ir.Block) bool
}

func (p *blockPass) Name() string  { return p.name }
func (p *blockPass) Scope() Scope  { return ScopeBlock }
func (p *blockPass) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Functions() {
		for _, b := range fn.Blocks {
			if p.fn(fn, b) {
				changed = true
			}
		}
	}
	return changed
}

type functionPass struct {
	name string
	fn   func(fn *ir.Function) bool
}

func (p *functionPass) Name() string { return p.name }
func (p *functionPass) Scope() Scope { return ScopeFunction }
func (p *functionPass) Apply(m *ir.Module) bool {
	changed := false
	for _, fn := range m.Functions() {
		if p.fn(fn) {
			changed = true
		}
	}
	return changed
}

type modulePass struct {
	name string
	fn   func(m *ir.Module) bool
}

func (p *modulePass) Name() string            { return p.name }
func (p *modulePass) Scope() Scope            { return ScopeModule }
func (p *modulePass) Apply(m *ir.Module) bool { return p.fn(m) }

// Manager is a queue of passes, run in order by Run.
type Manager struct {
	passes []Pass
}

// NewManager returns an empty pass queue.
func NewManager() *Manager { return &Manager{} }

// PushBack appends a pass to the end of the queue (FIFO insertion order).
func (m *Manager) PushBack(p Pass) *Manager { m.passes = append(m.passes, p); return m }

// PushFront inserts a pass at the front of the queue (LIFO insertion).
func (m *Manager) PushFront(p Pass) *Manager {
	m.passes = append([]Pass{p}, m.passes...)
	return m
}

// Run applies every queued pass, in order, exactly once each; it does not
// retry or fix-point (use AutoMaxOptimize for that).
func (m *Manager) Run(mod *ir.Module) {
	for _, p := range m.passes {
		changed := p.Apply(mod)
		obslog.Debugf(fmt.Sprintf("pass %s: mutated=%v", p.Name(), changed))
	}
}

// AutoMaxOptimize re-runs m's full pass queue against mod until a run
// changes nothing, or cap iterations have run, whichever comes first. A
// module is "structurally equal across iterations" here when the run that
// just completed reported no pass as having mutated anything — cheaper than
// diffing the module and equivalent, since every pass already reports its
// own mutation.
func AutoMaxOptimize(m *Manager, mod *ir.Module, maxIterations int) {
	for i := 0; i < maxIterations; i++ {
		anyChanged := false
		for _, p := range m.passes {
			if p.Apply(mod) {
				anyChanged = true
			}
			obslog.Debugf(fmt.Sprintf("auto_max_optimize iter %d: pass %s", i, p.Name()))
		}
		if !anyChanged {
			return
		}
	}
}
