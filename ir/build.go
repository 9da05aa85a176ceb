package ir

// Convenience constructors for each node kind, one per-kind builder function
// in place of a per-kind `AsXxx` method on a shared instruction type.

func NewAssign(out Variable, src Operand) *Node {
	return &Node{Op: OpAssign, Typ: out.Typ, Out: &out, Ins: []Operand{src}}
}

func NewBinary(op Opcode, out Variable, lhs, rhs Operand) *Node {
	return &Node{Op: op, Typ: out.Typ, Out: &out, Ins: []Operand{lhs, rhs}}
}

func NewNeg(out Variable, src Operand) *Node {
	return &Node{Op: OpNeg, Typ: out.Typ, Out: &out, Ins: []Operand{src}}
}

func NewCast(out Variable, from Type, src Operand) *Node {
	return &Node{Op: OpCast, Typ: out.Typ, Out: &out, Ins: []Operand{src}, CastFrom: from}
}

func NewAlloca(out Variable, size, align int) *Node {
	return &Node{Op: OpAlloca, Typ: out.Typ, Out: &out, AllocaSize: size, AllocaAlign: align}
}

func NewStore(value, ptr Operand) *Node {
	return &Node{Op: OpStore, Typ: value.Type(), Ins: []Operand{value, ptr}}
}

func NewLoad(out Variable, ptr Operand) *Node {
	return &Node{Op: OpLoad, Typ: out.Typ, Out: &out, Ins: []Operand{ptr}}
}

func NewGetElemPtr(out Variable, base Operand, index Operand, elem Type) *Node {
	return &Node{Op: OpGetElemPtr, Typ: out.Typ, Out: &out, Ins: []Operand{base, index}, ElemType: elem}
}

func NewBr(target *Block) *Node {
	return &Node{Op: OpBr, Typ: Void(), Target: target}
}

func NewBrCond(cond Operand, ifTrue, ifFalse *Block) *Node {
	return &Node{Op: OpBrCond, Typ: Void(), Ins: []Operand{cond}, Target: ifTrue, ElseTarget: ifFalse}
}

func NewSwitch(on Operand, cases []SwitchCase, def *Block) *Node {
	return &Node{Op: OpSwitch, Typ: Void(), Ins: []Operand{on}, SwitchCases: cases, Target: def}
}

func NewReturn(value Operand) *Node {
	return &Node{Op: OpReturn, Typ: value.Type(), Ins: []Operand{value}}
}

func NewReturnVoid() *Node {
	return &Node{Op: OpReturn, Typ: Void()}
}

func NewCmp(out Variable, mode CmpMode, lhs, rhs Operand) *Node {
	return &Node{Op: OpCmp, Typ: out.Typ, Out: &out, Cmp: mode, Ins: []Operand{lhs, rhs}}
}

func NewPhi(out Variable, incoming []PhiIncoming) *Node {
	return &Node{Op: OpPhi, Typ: out.Typ, Out: &out, Incoming: incoming}
}

func NewSelect(out Variable, cond, ifTrue, ifFalse Operand) *Node {
	return &Node{Op: OpSelect, Typ: out.Typ, Out: &out, Ins: []Operand{cond, ifTrue, ifFalse}}
}

func NewCall(out *Variable, callee string, intrinsic bool, args []Operand, resultTy Type) *Node {
	n := &Node{Op: OpCall, Typ: resultTy, Out: out, Ins: args, Callee: callee, Intrinsic: intrinsic}
	return n
}

func NewDebugNode(msg string) *Node {
	return &Node{Op: OpDebugNode, Typ: Void(), DebugMsg: msg}
}

func NewVecInsert(out Variable, vec, scalar Operand, lane int) *Node {
	return &Node{Op: OpVecInsert, Typ: out.Typ, Out: &out, Ins: []Operand{vec, scalar}, LaneIndex: lane}
}
