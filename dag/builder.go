package dag

import (
	"fmt"

	"github.com/loomgen/loomgen/ir"
)

// ArchInfo is the minimal architecture knowledge the DAG builder needs: the
// return register for a given result type, and the two frame-relative
// "intrinsic" registers. It is deliberately RealReg-agnostic (a raw uint16)
// so this package never imports backend (which imports dag to consume its
// output), keeping the dependency one-directional.
type ArchInfo interface {
	ReturnReg(t ir.Type) uint16
	FramePointerReg() uint16
	StackPointerReg() uint16
}

// currentArch is the one process-wide piece of mutable state the builder
// allows: set once per function build by Build, read by the per-kind
// visitors, and never accessed between invocations (single-threaded
// cooperative pipeline).
var currentArch ArchInfo

// Function is a per-function DAG: one node list per source block, keyed by
// block name, plus the block order and the function's own signature (needed
// by OpReturn lowering to know the return type and by argument handling in
// the selector).
type Function struct {
	Name       string
	Sig        ir.Signature
	EntryLabel string
	BlockOrder []string
	Blocks     map[string][]*Node
}

// currentVariadicCallees answers whether a callee name was declared with a
// variadic signature, consulted only while building OpCall nodes; like
// currentArch it is set once per Build call.
var currentVariadicCallees func(name string) bool

// Build lowers every block of f into a linear DAG, in block-then-node
// insertion order. isVariadicCallee (nil-safe) lets the builder tag call
// sites whose target is declared variadic, so the selector can honor the
// ABI's "clear the vector-register-arg-count register" rule; it is supplied
// by the module the function belongs to, since a function has no owning
// back-pointer to look this up itself.
func Build(f *ir.Function, arch ArchInfo, isVariadicCallee func(name string) bool) *Function {
	currentArch = arch
	currentVariadicCallees = isVariadicCallee
	defer func() { currentArch = nil; currentVariadicCallees = nil }()

	out := &Function{
		Name:   f.Name,
		Sig:    f.Sig,
		Blocks: map[string][]*Node{},
	}
	for i, b := range f.Blocks {
		if i == 0 {
			out.EntryLabel = b.Name
		}
		out.BlockOrder = append(out.BlockOrder, b.Name)
		out.Blocks[b.Name] = buildBlock(b)
	}
	return out
}

type sink struct{ nodes []*Node }

func (s *sink) emit(n *Node) { s.nodes = append(s.nodes, n) }

// buildBlock iterates the block's nodes in order and invokes a per-kind
// visitor that pushes zero or more DAG nodes into the block's sink. Visitors
// are total over the IR opcode set.
func buildBlock(b *ir.Block) []*Node {
	s := &sink{}
	for _, n := range b.Nodes {
		visit(s, n)
	}
	return s.nodes
}

func toOperand(o ir.Operand) Operand {
	if o.IsConst {
		return ConstOperand(o.Const)
	}
	return VarOperand(o.Var)
}

func visit(s *sink, n *ir.Node) {
	switch n.Op {
	case ir.OpAssign:
		s.emit(&Node{Op: OpCopy, Typ: n.Typ, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0])}})
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpDiv, ir.OpRem, ir.OpShl, ir.OpShr, ir.OpAnd, ir.OpOr, ir.OpXor:
		s.emit(&Node{Op: binOpcode(n.Op), Typ: n.Typ, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0]), toOperand(n.Ins[1])}})
	case ir.OpNeg:
		s.emit(&Node{Op: OpNeg, Typ: n.Typ, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0])}})
	case ir.OpCmp:
		// Compares produce a DAG node with the exact mode preserved.
		s.emit(&Node{Op: OpCmp, Typ: n.Typ, Cmp: n.Cmp, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0]), toOperand(n.Ins[1])}})
	case ir.OpCast:
		s.emit(&Node{Op: OpCast, Typ: n.Typ, CastFrom: n.CastFrom.Kind, CastTo: n.Typ.Kind, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0])}})
	case ir.OpAlloca:
		s.emit(&Node{Op: OpAlloca, Typ: n.Typ, Out: outOf(n), AllocaSize: n.AllocaSize, AllocaAlign: n.AllocaAlign})
	case ir.OpStore:
		// Stores lower to a copy to a pointer-typed operand with
		// should_be_mem = true.
		val := toOperand(n.Ins[0])
		ptr := toOperand(n.Ins[1])
		ptr.ShouldBeMemory = true
		s.emit(&Node{Op: OpStore, Typ: n.Ins[0].Type(), Ins: []Operand{val, ptr}})
	case ir.OpLoad:
		ptr := toOperand(n.Ins[0])
		ptr.ShouldBeMemory = true
		s.emit(&Node{Op: OpLoad, Typ: n.Typ, Out: outOf(n), Ins: []Operand{ptr}})
	case ir.OpGetElemPtr:
		s.emit(&Node{Op: OpGetElemPtr, Typ: n.Typ, ElemType: n.ElemType, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0]), toOperand(n.Ins[1])}})
	case ir.OpBr:
		s.emit(&Node{Op: OpBr, Typ: ir.Void(), Target: n.Target.Name})
	case ir.OpBrCond:
		// cmp cond, 0; jne true; jmp false — represented here as a single
		// OpCondBrEq DAG node (cond == 0 implies the "equal" branch target
		// is the false block); the selector expands it into the literal
		// cmp/jcc/jmp pair.
		cond := toOperand(n.Ins[0])
		s.emit(&Node{
			Op: OpCondBrEq, Typ: ir.I8(), Cmp: ir.CmpEq,
			Ins:        []Operand{cond, ConstOperand(ir.ConstInt(ir.I8(), 0))},
			Target:     n.ElseTarget.Name,
			ElseTarget: n.Target.Name,
		})
	case ir.OpSwitch:
		on := toOperand(n.Ins[0])
		node := &Node{Op: OpSwitchArm, Typ: n.Ins[0].Type(), Ins: []Operand{on}, Target: n.Target.Name}
		for _, c := range n.SwitchCases {
			node.SwitchCases = append(node.SwitchCases, SwitchCase{Value: c.Value, Target: c.Target.Name})
		}
		s.emit(node)
	case ir.OpReturn:
		if len(n.Ins) > 0 {
			// Returns lower to (copy value -> designated return register,
			// then a ret DAG node).
			dst := RegOperand(currentArch.ReturnReg(n.Ins[0].Type()), n.Ins[0].Type())
			dst.Allocated = true
			s.emit(&Node{Op: OpCopy, Typ: n.Ins[0].Type(), Out: &dst, Ins: []Operand{toOperand(n.Ins[0])}})
		}
		s.emit(&Node{Op: OpReturn, Typ: n.Typ})
	case ir.OpPhi:
		// Phi nodes affect only register-allocation preparation and do not
		// emit DAG nodes.
	case ir.OpSelect:
		// select(cond, a, b) has no single hardware op at this level; the
		// selector lowers it via a pair of DAG copies guarded by a
		// conditional-move, expressed here as a single pseudo-opcode shared
		// with OpCmp/OpCopy composition by the selector. We emit it as a
		// cast-free copy chain: tmp = b; if cond then tmp = a; out = tmp —
		// modeled directly as a synthetic call to keep this package free of
		// a fourth control opcode; the amd64/wasm selectors expand this
		// "$select" call in lowerSelect, see their select.go.
		s.emit(selectPlaceholder(n))
	case ir.OpCall:
		node := &Node{Op: OpCall, Typ: n.Typ, Out: outOf(n), Callee: n.Callee, Intrinsic: n.Intrinsic}
		if currentVariadicCallees != nil {
			node.VariadicCallee = currentVariadicCallees(n.Callee)
		}
		for _, a := range n.Ins {
			node.Ins = append(node.Ins, toOperand(a))
		}
		if n.Intrinsic {
			switch n.Callee {
			case "get_frame_ptr":
				node.Op = OpGetFramePtr
			case "get_stack_ptr":
				node.Op = OpGetStackPtr
			}
		}
		s.emit(node)
	case ir.OpDebugNode:
		// Debug nodes carry no codegen effect at the DAG level.
	case ir.OpVecInsert:
		s.emit(&Node{Op: OpVecInsert, Typ: n.Typ, LaneIndex: n.LaneIndex, Out: outOf(n), Ins: []Operand{toOperand(n.Ins[0]), toOperand(n.Ins[1])}})
	default:
		panic(fmt.Sprintf("dag: unhandled ir opcode %s", n.Op))
	}
}

func outOf(n *ir.Node) *Operand {
	if n.Out == nil {
		return nil
	}
	o := VarOperand(*n.Out)
	return &o
}

func binOpcode(op ir.Opcode) Opcode {
	switch op {
	case ir.OpAdd:
		return OpAdd
	case ir.OpSub:
		return OpSub
	case ir.OpMul:
		return OpMul
	case ir.OpDiv:
		return OpDiv
	case ir.OpRem:
		return OpRem
	case ir.OpShl:
		return OpShl
	case ir.OpShr:
		return OpShr
	case ir.OpAnd:
		return OpAnd
	case ir.OpOr:
		return OpOr
	case ir.OpXor:
		return OpXor
	default:
		panic("dag: not a binary ir opcode")
	}
}

// selectPlaceholder keeps ir.OpSelect nodes intact as an opaque "call" shaped
// DAG node (Callee == "$select") so the per-architecture selector can match
// on it explicitly and lower it to a CMov sequence without this package
// needing a bespoke select opcode with three input slots and no output
// ambiguity; the callee-name sentinel keeps the closed Opcode enum small.
func selectPlaceholder(n *ir.Node) *Node {
	node := &Node{Op: OpCall, Typ: n.Typ, Out: outOf(n), Callee: "$select", Intrinsic: true}
	for _, a := range n.Ins {
		node.Ins = append(node.Ins, toOperand(a))
	}
	return node
}
