package amd64

import (
	"github.com/loomgen/loomgen/asm/amd64"
	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/backend/regalloc"
	"github.com/loomgen/loomgen/ir"
)

// Lowered is one function's final concrete-instruction stream plus the
// block boundaries needed to attach block labels for the assembler's
// relocation table.
type Lowered struct {
	Order        []string
	Instructions map[string][]amd64.Instruction
}

// LowerFunction maps a fully allocated MI stream (no virtual operands
// remain) to concrete x86-64 instructions, synthesizing the prolog/epilog
// pair when the allocator's Result says the function needs one, then runs
// the bounded peephole pass. opts.MaxPeepholeIterations overrides the
// package default peephole bound when positive.
func LowerFunction(order []string, instrs map[string][]*backend.MachineInstr, res *regalloc.Result, opts backend.CompileOptions) *Lowered {
	out := &Lowered{Order: order, Instructions: map[string][]amd64.Instruction{}}
	for i, b := range order {
		var list []amd64.Instruction
		if i == 0 {
			list = append(list, prolog(res)...)
		}
		for _, m := range instrs[b] {
			if m.Op == backend.MIReturn {
				list = append(list, epilog(res)...)
			}
			list = append(list, lowerOne(m)...)
		}
		out.Instructions[b] = peephole(list, opts.MaxPeepholeIterations)
	}
	return out
}

func width(t ir.Type) int {
	switch t.ByteSize() {
	case 1:
		return 8
	case 2:
		return 16
	case 4:
		return 32
	default:
		return 64
	}
}

func toOperand(o backend.MIOperand) amd64.Operand {
	switch o.Kind {
	case backend.MIOperandReal:
		reg := regOf(o.Real, width(o.Typ))
		return amd64.Operand{Kind: amd64.OperandReg, Reg: reg}
	case backend.MIOperandImm:
		return amd64.ImmOp(o.Imm, width(o.Typ)/8)
	case backend.MIOperandStack:
		return amd64.MemOp(amd64.Mem{HasBase: true, Base: regOf(RBP, 64), Disp: int32(o.Slot), Width: width(o.Typ)})
	case backend.MIOperandLabel:
		return amd64.BlockLinkDestination(o.Label, 0)
	default:
		return amd64.Operand{}
	}
}

func regOf(r backend.RealReg, w int) amd64.Reg {
	if r >= XMM0 {
		return amd64.Reg{Enc: XMMEnc(r), Width: 128, IsXMM: true}
	}
	return amd64.Reg{Enc: Enc(r), Width: w}
}

func ins(mnemonic string, ops ...amd64.Operand) amd64.Instruction {
	return amd64.Instruction{Mnemonic: mnemonic, Operands: ops}
}

func lowerOne(m *backend.MachineInstr) []amd64.Instruction {
	switch m.Op {
	case backend.MIMove, backend.MIFMove:
		dst, src := toOperand(*m.Result), toOperand(m.Args[0])
		if src.Kind == amd64.OperandMem && dst.Kind == amd64.OperandMem {
			scratch := amd64.RegOp(EncAX, width(m.Typ))
			return []amd64.Instruction{ins("mov", scratch, src), ins("mov", dst, scratch)}
		}
		return []amd64.Instruction{ins("mov", dst, src)}

	case backend.MIAdd, backend.MISub, backend.MIMul, backend.MIAnd, backend.MIOr, backend.MIXor:
		dst := toOperand(*m.Result)
		scratch := amd64.RegOp(EncAX, width(m.Typ))
		return []amd64.Instruction{
			ins("mov", scratch, toOperand(m.Args[0])),
			ins(arithMnemonic(m.Op), scratch, toOperand(m.Args[1])),
			ins("mov", dst, scratch),
		}

	case backend.MIDiv, backend.MIRem:
		dst := toOperand(*m.Result)
		rax := amd64.RegOp(EncAX, width(m.Typ))
		rdx := amd64.RegOp(EncDX, width(m.Typ))
		mnemonic := "idiv"
		if !m.Typ.Signed() {
			mnemonic = "div"
		}
		out := []amd64.Instruction{
			ins("mov", rax, toOperand(m.Args[0])),
			ins("xor", rdx, rdx),
		}
		if m.Typ.Signed() {
			out = append(out, ins("cqo"))
		}
		out = append(out, ins(mnemonic, toOperand(m.Args[1])))
		if m.Op == backend.MIDiv {
			out = append(out, ins("mov", dst, rax))
		} else {
			out = append(out, ins("mov", dst, rdx))
		}
		return out

	case backend.MINeg:
		dst := toOperand(*m.Result)
		return []amd64.Instruction{ins("mov", dst, toOperand(m.Args[0])), ins("neg", dst)}

	case backend.MICmp:
		return []amd64.Instruction{ins("cmp", toOperand(m.Args[0]), toOperand(m.Args[1]))}

	case backend.MISetCC:
		dst8 := toOperand(*m.Result)
		if dst8.Kind == amd64.OperandReg {
			dst8.Reg.Width = 8
		}
		out := []amd64.Instruction{ins(setccMnemonic(m.Cond), dst8)}
		if width(m.Typ) != 8 && dst8.Kind == amd64.OperandReg {
			full := toOperand(*m.Result)
			out = append(out, ins("movzx", full, dst8))
		}
		return out

	case backend.MIJump:
		return []amd64.Instruction{ins("jmp", toOperand(m.Args[0]))}

	case backend.MIJumpIf:
		return []amd64.Instruction{ins(jccMnemonic(m.Cond), toOperand(m.Args[0]))}

	case backend.MICall:
		return []amd64.Instruction{ins("call", amd64.LinkDestination(m.CallTarget, 0))}

	case backend.MIReturn:
		return []amd64.Instruction{ins("ret")}

	case backend.MILoad:
		dst := toOperand(*m.Result)
		ptr := toOperand(m.Args[0])
		src := amd64.MemOp(amd64.Mem{HasBase: true, Base: ptr.Reg, Width: width(m.Typ)})
		return []amd64.Instruction{ins("mov", dst, src)}

	case backend.MIStore:
		ptr := toOperand(m.Args[0])
		val := toOperand(m.Args[1])
		dst := amd64.MemOp(amd64.Mem{HasBase: true, Base: ptr.Reg, Width: width(m.Typ)})
		return []amd64.Instruction{ins("mov", dst, val)}

	case backend.MILoadAddr:
		dst := toOperand(*m.Result)
		src := toOperand(m.Args[0])
		if src.Kind == amd64.OperandMem {
			return []amd64.Instruction{ins("lea", dst, src)}
		}
		return []amd64.Instruction{ins("lea", dst, amd64.MemOp(amd64.Mem{RIP: true, Symbol: src.Label}))}

	case backend.MIPush:
		return []amd64.Instruction{ins("push", toOperand(m.Args[0]))}
	case backend.MIPop:
		return []amd64.Instruction{ins("pop", toOperand(m.Args[0]))}

	case backend.MIGetFramePtr:
		return []amd64.Instruction{ins("mov", toOperand(*m.Result), amd64.RegOp(EncBP, 64))}
	case backend.MIGetStackPtr:
		return []amd64.Instruction{ins("mov", toOperand(*m.Result), amd64.RegOp(EncSP, 64))}

	case backend.MICMovNZ:
		return []amd64.Instruction{ins("cmovnz", toOperand(*m.Result), toOperand(m.Args[0]))}

	default:
		return nil
	}
}

func arithMnemonic(op backend.MIOp) string {
	switch op {
	case backend.MIAdd:
		return "add"
	case backend.MISub:
		return "sub"
	case backend.MIMul:
		return "imul"
	case backend.MIAnd:
		return "and"
	case backend.MIOr:
		return "or"
	case backend.MIXor:
		return "xor"
	default:
		return "?"
	}
}

func setccMnemonic(c ir.CmpMode) string {
	switch c {
	case ir.CmpEq:
		return "sete"
	case ir.CmpNe:
		return "setne"
	case ir.CmpLt:
		return "setl"
	case ir.CmpLe:
		return "setle"
	case ir.CmpGt:
		return "setg"
	default:
		return "setge"
	}
}

func jccMnemonic(c ir.CmpMode) string {
	switch c {
	case ir.CmpEq:
		return "je"
	case ir.CmpNe:
		return "jne"
	case ir.CmpLt:
		return "jl"
	case ir.CmpLe:
		return "jle"
	case ir.CmpGt:
		return "jg"
	default:
		return "jge"
	}
}

// prolog pushes callee-saved GPRs, then (if the frame is non-zero) sets up
// the frame pointer and reserves frame_size bytes. XMM callee-saved
// registers spill to reserved stack slots rather than push (x86-64 has no
// push/pop for XMM); that reservation is folded into res.FrameSize by the
// allocator's MemoryProcessor when such registers are actually used.
func prolog(res *regalloc.Result) []amd64.Instruction {
	if !res.NeedsEpilog {
		return nil
	}
	var out []amd64.Instruction
	for _, r := range res.CalleeSaved {
		if r < XMM0 {
			out = append(out, ins("push", amd64.RegOp(Enc(r), 64)))
		}
	}
	if res.FrameSize > 0 {
		out = append(out,
			ins("push", amd64.RegOp(EncBP, 64)),
			ins("mov", amd64.RegOp(EncBP, 64), amd64.RegOp(EncSP, 64)),
			ins("sub", amd64.RegOp(EncSP, 64), amd64.ImmOp(int64(res.FrameSize), 4)),
		)
	}
	return out
}

// epilog mirrors prolog in reverse, emitted immediately before every MI
// Return.
func epilog(res *regalloc.Result) []amd64.Instruction {
	if !res.NeedsEpilog {
		return nil
	}
	var out []amd64.Instruction
	if res.FrameSize > 0 {
		out = append(out,
			ins("add", amd64.RegOp(EncSP, 64), amd64.ImmOp(int64(res.FrameSize), 4)),
			ins("pop", amd64.RegOp(EncBP, 64)),
		)
	}
	for i := len(res.CalleeSaved) - 1; i >= 0; i-- {
		r := res.CalleeSaved[i]
		if r < XMM0 {
			out = append(out, ins("pop", amd64.RegOp(Enc(r), 64)))
		}
	}
	return out
}
