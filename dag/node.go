// Package dag builds, per basic block, a linear DAG of target-agnostic
// opcodes with typed, possibly-unallocated operands — the input to
// instruction selection.
package dag

import "github.com/loomgen/loomgen/ir"

// Opcode is the closed set of DAG opcodes.
//
// Casts are represented by the single OpCast opcode carrying the exact
// (fromKind, toKind) pair in the node's CastFrom/CastTo fields rather than
// exploding into one opcode constant per pair: selection patterns still
// switch on the exact pair, so lowering stays exhaustive over the full
// conversion matrix, but the closed Go enum stays a manageable size. See
// DESIGN.md for the rationale.
type Opcode byte

const (
	OpInvalid Opcode = iota
	OpCopy
	OpReturn
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpShl
	OpShr
	OpAnd
	OpOr
	OpXor
	OpNeg
	OpCmp
	OpCast
	OpBr
	OpCondBrEq // "conditional-branch-if-equal": br if operand 0 == operand 1
	OpCall
	OpSwitchArm // a whole switch: every case in SwitchCases, the default in Target
	OpVecInsert
	OpGetFramePtr
	OpGetStackPtr
	OpGetElemPtr
	OpLoad
	OpStore
	OpAlloca
)

func (op Opcode) String() string {
	names := [...]string{
		"invalid", "copy", "return", "add", "sub", "mul", "div", "rem",
		"shl", "shr", "and", "or", "xor", "neg", "cmp", "cast", "br",
		"condbreq", "call", "switcharm", "vecinsert", "getframeptr",
		"getstackptr", "getelemptr", "load", "store", "alloca",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// OperandOp further qualifies how an Operand should be materialized: plain
// value, or the address of a named module-level constant.
type OperandOp byte

const (
	OperandPlain OperandOp = iota
	OperandAddrOfConst
)

// OperandTarget discriminates Operand's payload variant.
type OperandTarget byte

const (
	TargetUnallocatedVar OperandTarget = iota
	TargetRegister
	TargetConstant
	TargetMemory
)

// Operand is a DAG-level operand: an allocated bit, a target variant, a
// type, an operation qualifier, and a should-be-memory hint used to coerce
// pointers to memory operands during selection.
type Operand struct {
	Allocated      bool
	Target         OperandTarget
	Typ            ir.Type
	Op             OperandOp
	ShouldBeMemory bool

	Var      ir.Variable // TargetUnallocatedVar
	RegRaw   uint16      // TargetRegister: RealReg, kept untyped to avoid an import cycle with backend
	Const    ir.Const    // TargetConstant
	Mem      MemDisp     // TargetMemory
	ConstRef string      // OperandAddrOfConst: the referenced module constant's name
}

// VarOperand wraps an IR variable as an unallocated DAG operand.
func VarOperand(v ir.Variable) Operand {
	return Operand{Target: TargetUnallocatedVar, Typ: v.Typ, Var: v}
}

// ConstOperand wraps a typed constant as a DAG operand.
func ConstOperand(c ir.Const) Operand {
	return Operand{Allocated: true, Target: TargetConstant, Typ: c.Typ, Const: c}
}

// RegOperand wraps an already-concrete register id as a DAG operand.
func RegOperand(real uint16, t ir.Type) Operand {
	return Operand{Allocated: true, Target: TargetRegister, Typ: t, RegRaw: real}
}

// MemOperand wraps a resolved memory displacement as a DAG operand.
func MemOperand(m MemDisp, t ir.Type) Operand {
	return Operand{Allocated: true, Target: TargetMemory, Typ: t, Mem: m}
}

// AddrOfConst builds an operand requesting the address of a named
// module-level constant.
func AddrOfConst(name string, t ir.Type) Operand {
	return Operand{Allocated: true, Target: TargetConstant, Typ: t, Op: OperandAddrOfConst, ConstRef: name}
}

// IsReg reports whether this operand is a concrete register operand; which
// register class it belongs to is left to the caller's own RealReg→class
// lookup since dag does not know register classes (that's backend's concern).
func (o Operand) IsReg() bool    { return o.Target == TargetRegister }
func (o Operand) IsMem() bool    { return o.Target == TargetMemory }
func (o Operand) IsImm() bool    { return o.Target == TargetConstant && o.Op == OperandPlain }
func (o Operand) IsVar() bool    { return o.Target == TargetUnallocatedVar }

// SwitchCase is one (value, target block label) arm of a lowered OpSwitch.
type SwitchCase struct {
	Value  ir.Const
	Target string
}

// Node is one DAG node: an opcode, an optional output operand, and an
// ordered list of input operands, all carrying the type descriptor the node
// operates at.
type Node struct {
	Op  Opcode
	Typ ir.Type

	Out *Operand
	Ins []Operand

	Cmp ir.CmpMode // OpCmp, OpCondBrEq comparison mode context

	// Control payload: block names (DAG nodes do not hold *ir.Block
	// pointers so they stay valid independent of IR lifetime).
	Target      string
	ElseTarget  string
	SwitchCases []SwitchCase

	// OpCall payload.
	Callee         string
	Intrinsic      bool
	VariadicCallee bool

	// OpCast payload.
	CastFrom ir.TypeKind
	CastTo   ir.TypeKind

	// OpVecInsert / OpGetElemPtr payload.
	LaneIndex int
	ElemType  ir.Type

	// OpAlloca payload.
	AllocaSize  int
	AllocaAlign int
}
