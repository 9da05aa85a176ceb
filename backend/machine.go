package backend

import (
	"github.com/loomgen/loomgen/dag"
	"github.com/loomgen/loomgen/ir"
)

// TmpConstraint narrows where a temporary requested by the selector may
// live.
type TmpConstraint byte

const (
	TmpAnywhere TmpConstraint = iota
	TmpRequiresGR
	TmpRequiresMem
	TmpLocationIrrelevant
)

// TmpInfo is one temporary a selector pattern declares for a DAG node, with
// its per-temporary constraint.
type TmpInfo struct {
	Constraint TmpConstraint
	Typ        ir.Type
}

// Machine is a per-architecture instruction selector. Each backend/isa/<arch>
// package implements one.
type Machine interface {
	// Name identifies the target, e.g. "amd64" or "wasm".
	Name() string

	// RequiredTmps declares the virtual temporaries node needs, with their
	// constraints.
	RequiredTmps(node *dag.Node) []TmpInfo

	// Lower walks fn's DAG nodes, block by block, in order, and emits MI
	// into the returned per-block stream. tmps supplies the allocator-minted
	// virtual registers for every temporary RequiredTmps declared, indexed
	// in declaration order per node.
	Lower(fn *dag.Function, alloc *Allocator, tmps func(node *dag.Node) []VReg) map[string][]*MachineInstr

	// RegisterFile returns this target's physical register table.
	RegisterFile() RegisterFile

	// ABI returns this target's calling-convention hooks.
	ABI() ABI
}

// Allocator mints fresh virtual registers for a Machine while it emits MI;
// assigning registers to them is done afterwards by backend/regalloc.
type Allocator struct {
	nextID VRegID
}

// NewAllocator returns a fresh virtual-register id source.
func NewAllocator() *Allocator { return &Allocator{} }

// Fresh mints a new, as-yet-unallocated VReg.
func (a *Allocator) Fresh() VReg {
	id := a.nextID
	a.nextID++
	return NewVReg(id)
}

// ABI captures the architecture-and-convention-specific argument placement
// and stack rules a Machine and the register allocator both need.
type ABI interface {
	// Name identifies the convention, e.g. "systemv", "win64", "wasm-basic-c".
	Name() string
	// IntArgRegs/FloatArgRegs list the registers used for the first N
	// arguments of each class, in order.
	IntArgRegs() []RealReg
	FloatArgRegs() []RealReg
	// IntReturnReg/FloatReturnReg name the registers carrying return values.
	IntReturnReg() RealReg
	FloatReturnReg() RealReg
	// ShadowSpaceBytes is the caller-reserved area before the first stack
	// argument (32 on Windows fast-call, 0 elsewhere).
	ShadowSpaceBytes() int
	// StackArgBaseOffset is the byte offset of the first stack argument
	// from the stack pointer on function entry (past the return address).
	StackArgBaseOffset() int
	// CalleeSaved lists the registers the callee must preserve.
	CalleeSaved() []RealReg
	// ClearRAXForVariadicCall reports whether a variadic call site must
	// zero the integer return/vararg-count register before the call (the
	// SystemV "al holds vector-register-arg-count" rule; x86-64 uses RAX).
	ClearRAXForVariadicCall() bool
}
