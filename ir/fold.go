package ir

// MaybeInline returns a new node with operands replaced by constants where
// known, or (nil, false) if nothing could be substituted. It never changes
// the node's shape (opcode, output, operand count).
func (n *Node) MaybeInline(known map[string]Const) (*Node, bool) {
	changed := false
	ins := make([]Operand, len(n.Ins))
	for i, in := range n.Ins {
		ins[i] = in
		if !in.IsConst {
			if c, ok := known[in.Var.Name]; ok {
				ins[i] = OperandFromConst(c)
				changed = true
			}
		}
	}
	incoming := n.Incoming
	if len(n.Incoming) > 0 {
		incoming = make([]PhiIncoming, len(n.Incoming))
		for i, pi := range n.Incoming {
			incoming[i] = pi
			if !pi.Value.IsConst {
				if c, ok := known[pi.Value.Var.Name]; ok {
					incoming[i].Value = OperandFromConst(c)
					changed = true
				}
			}
		}
	}
	if !changed {
		return nil, false
	}
	clone := *n
	clone.Ins = ins
	clone.Incoming = incoming
	return &clone, true
}

// Eval attempts algebraic folding: identity laws, constant folding of
// two-constant binaries (with type-correct wrapping or IEEE-754 as
// appropriate), and short-circuit elimination. It returns (nil, false) when
// no reduction applies.
func (n *Node) Eval() (*Node, bool) {
	switch n.Op {
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpShl, OpShr, OpAnd, OpOr, OpXor:
		return n.evalBinary()
	case OpCmp:
		return n.evalCmp()
	case OpBrCond:
		if n.Target == n.ElseTarget {
			return NewBr(n.Target), true
		}
	case OpSwitch:
		if len(n.SwitchCases) == 0 {
			return NewBr(n.Target), true
		}
	}
	return nil, false
}

func (n *Node) evalBinary() (*Node, bool) {
	lhs, rhs := n.Ins[0], n.Ins[1]
	ty := n.Typ

	if lhs.IsConst && rhs.IsConst {
		return n.foldConstBinary(lhs.Const, rhs.Const)
	}

	// Identity laws, only when the variable side is unambiguous.
	if rhs.IsConst && !ty.Float() {
		switch {
		case n.Op == OpAdd && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpSub && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpMul && rhs.Const.Int64() == 1:
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpMul && rhs.Const.IsZero():
			return NewAssign(*n.Out, OperandFromConst(ConstInt(ty, 0))), true
		case n.Op == OpShl && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpShr && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpOr && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		case n.Op == OpAnd && rhs.Const.IsZero():
			return NewAssign(*n.Out, OperandFromConst(ConstInt(ty, 0))), true
		case n.Op == OpXor && rhs.Const.IsZero():
			return NewAssign(*n.Out, lhs), true
		}
	}
	if !lhs.IsConst && !rhs.IsConst && lhs.Var.Name == rhs.Var.Name {
		switch n.Op {
		case OpSub, OpXor:
			return NewAssign(*n.Out, OperandFromConst(ConstInt(ty, 0))), true
		case OpDiv:
			return NewAssign(*n.Out, OperandFromConst(ConstInt(ty, 1))), true
		case OpAnd, OpOr:
			return NewAssign(*n.Out, lhs), true
		}
	}
	return nil, false
}

func (n *Node) foldConstBinary(a, b Const) (*Node, bool) {
	ty := n.Typ
	if ty.Float() {
		x, y := a.Float64(), b.Float64()
		var r float64
		switch n.Op {
		case OpAdd:
			r = x + y
		case OpSub:
			r = x - y
		case OpMul:
			r = x * y
		case OpDiv:
			if y == 0 {
				return nil, false
			}
			r = x / y
		default:
			return nil, false
		}
		var c Const
		if ty.Kind == TypeF32 {
			c = ConstFloat32(float32(r))
		} else {
			c = ConstFloat64(r)
		}
		return NewAssign(*n.Out, OperandFromConst(c)), true
	}

	x, y := a.Int64(), b.Int64()
	var r int64
	switch n.Op {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		if y == 0 {
			return nil, false
		}
		r = x / y
	case OpRem:
		if y == 0 {
			return nil, false
		}
		r = x % y
	case OpShl:
		r = x << uint64(y)
	case OpShr:
		r = x >> uint64(y)
	case OpAnd:
		r = x & y
	case OpOr:
		r = x | y
	case OpXor:
		r = x ^ y
	default:
		return nil, false
	}
	return NewAssign(*n.Out, OperandFromConst(ConstInt(ty, r))), true
}

func (n *Node) evalCmp() (*Node, bool) {
	lhs, rhs := n.Ins[0], n.Ins[1]
	if !lhs.IsConst || !rhs.IsConst {
		return nil, false
	}
	var result bool
	if lhs.Const.Typ.Float() {
		x, y := lhs.Const.Float64(), rhs.Const.Float64()
		result = evalCmpOrdered(n.Cmp, x < y, x == y, x > y)
	} else {
		x, y := lhs.Const.Int64(), rhs.Const.Int64()
		result = evalCmpOrdered(n.Cmp, x < y, x == y, x > y)
	}
	v := int64(0)
	if result {
		v = 1
	}
	return NewAssign(*n.Out, OperandFromConst(ConstInt(n.Typ, v))), true
}

func evalCmpOrdered(mode CmpMode, lt, eq, gt bool) bool {
	switch mode {
	case CmpEq:
		return eq
	case CmpNe:
		return !eq
	case CmpLt:
		return lt
	case CmpLe:
		return lt || eq
	case CmpGt:
		return gt
	case CmpGe:
		return gt || eq
	default:
		return false
	}
}
