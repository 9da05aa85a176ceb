package ir

import (
	"fmt"
	"strings"
)

// Styler controls the decoration used when rendering a node with
// StringStyled. The plain Styler (used by String) is the identity; a styled
// renderer (owned by the out-of-scope pretty-print collaborator) might color
// opcodes and operands differently.
type Styler interface {
	Opcode(string) string
	Operand(string) string
}

type plainStyler struct{}

func (plainStyler) Opcode(s string) string  { return s }
func (plainStyler) Operand(s string) string { return s }

// String renders the node in plain text.
func (n *Node) String() string { return n.StringStyled(plainStyler{}) }

// StringStyled renders the node applying s to opcode and operand fragments.
func (n *Node) StringStyled(s Styler) string {
	var b strings.Builder
	if n.Out != nil {
		b.WriteString(s.Operand(n.Out.String()))
		b.WriteString(" = ")
	}
	switch n.Op {
	case OpAssign:
		fmt.Fprintf(&b, "%s %s", s.Opcode("assign"), s.Operand(n.Ins[0].String()))
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpShl, OpShr, OpAnd, OpOr, OpXor:
		fmt.Fprintf(&b, "%s %s, %s", s.Opcode(n.Op.String()), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()))
	case OpNeg:
		fmt.Fprintf(&b, "%s %s", s.Opcode("neg"), s.Operand(n.Ins[0].String()))
	case OpCast:
		fmt.Fprintf(&b, "%s %s to %s", s.Opcode("cast"), s.Operand(n.Ins[0].String()), n.Typ.String())
	case OpAlloca:
		fmt.Fprintf(&b, "%s %s, size %d, align %d", s.Opcode("alloca"), n.Typ.String(), n.AllocaSize, n.AllocaAlign)
	case OpStore:
		fmt.Fprintf(&b, "%s %s, %s", s.Opcode("store"), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()))
	case OpLoad:
		fmt.Fprintf(&b, "%s %s, %s", s.Opcode("load"), n.Typ.String(), s.Operand(n.Ins[0].String()))
	case OpGetElemPtr:
		fmt.Fprintf(&b, "%s %s, %s, %s", s.Opcode("getelemptr"), n.ElemType.String(), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()))
	case OpBr:
		fmt.Fprintf(&b, "%s %s", s.Opcode("br"), n.Target.Name)
	case OpBrCond:
		fmt.Fprintf(&b, "%s %s, %s, %s", s.Opcode("brcond"), s.Operand(n.Ins[0].String()), n.Target.Name, n.ElseTarget.Name)
	case OpSwitch:
		fmt.Fprintf(&b, "%s %s [", s.Opcode("switch"), s.Operand(n.Ins[0].String()))
		for i, c := range n.SwitchCases {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: %s", c.Value.String(), c.Target.Name)
		}
		fmt.Fprintf(&b, "] default %s", n.Target.Name)
	case OpReturn:
		if len(n.Ins) == 0 {
			b.WriteString(s.Opcode("ret"))
		} else {
			fmt.Fprintf(&b, "%s %s", s.Opcode("ret"), s.Operand(n.Ins[0].String()))
		}
	case OpCmp:
		fmt.Fprintf(&b, "%s %s %s, %s", s.Opcode("cmp"), n.Cmp.String(), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()))
	case OpPhi:
		b.WriteString(s.Opcode("phi"))
		for i, in := range n.Incoming {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " [%s: %s]", in.Block.Name, s.Operand(in.Value.String()))
		}
	case OpSelect:
		fmt.Fprintf(&b, "%s %s, %s, %s", s.Opcode("select"), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()), s.Operand(n.Ins[2].String()))
	case OpCall:
		if n.Intrinsic {
			b.WriteString(s.Opcode("call intrinsic "))
		} else {
			b.WriteString(s.Opcode("call "))
		}
		b.WriteString("@" + n.Callee + "(")
		for i, a := range n.Ins {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(s.Operand(a.String()))
		}
		b.WriteString(")")
	case OpDebugNode:
		fmt.Fprintf(&b, "%s %q", s.Opcode("dbg"), n.DebugMsg)
	case OpVecInsert:
		fmt.Fprintf(&b, "%s %s, %s, %d", s.Opcode("vecinsert"), s.Operand(n.Ins[0].String()), s.Operand(n.Ins[1].String()), n.LaneIndex)
	}
	return b.String()
}

func (v Variable) formatWithType() string {
	return v.Typ.String() + " " + v.String()
}
