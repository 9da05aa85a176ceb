package amd64

import "github.com/loomgen/loomgen/asm/amd64"

// maxPeepholeIterations bounds the fixed-point loop: each rule only ever
// shrinks or rewrites a 2-3 instruction window, so convergence is fast;
// this is a backstop against an unexpected oscillation, not a tuned budget.
const maxPeepholeIterations = 8

// peephole runs the small fixed-point rewrite pass over one block's
// lowered instructions: fuses mov+add+mov into lea, drops dead self-moves,
// and folds "mov r, 0" into "xor r, r". maxIter <= 0 uses the package
// default.
func peephole(in []amd64.Instruction, maxIter int) []amd64.Instruction {
	if maxIter <= 0 {
		maxIter = maxPeepholeIterations
	}
	cur := in
	for i := 0; i < maxIter; i++ {
		next := peepholePass(cur)
		if sameStream(next, cur) {
			return next
		}
		cur = next
	}
	return cur
}

// sameStream reports structural equality of two instruction streams, used
// to detect the peephole pass has reached its fixed point.
func sameStream(a, b []amd64.Instruction) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if amd64.Print(a[i]) != amd64.Print(b[i]) {
			return false
		}
	}
	return true
}

func peepholePass(in []amd64.Instruction) []amd64.Instruction {
	var out []amd64.Instruction
	for i := 0; i < len(in); i++ {
		if i+2 < len(in) {
			if lea, ok := tryFuseLea(in[i], in[i+1], in[i+2]); ok {
				out = append(out, lea)
				i += 2
				continue
			}
		}
		if isDeadSelfMove(in[i]) {
			continue
		}
		out = append(out, foldZeroMove(in[i]))
	}
	return out
}

// tryFuseLea matches "mov scratch, x; add scratch, y; mov z, scratch" and
// rewrites it to "lea z, [x + y]" when x/y are both plain registers.
func tryFuseLea(a, b, c amd64.Instruction) (amd64.Instruction, bool) {
	if a.Mnemonic != "mov" || b.Mnemonic != "add" || c.Mnemonic != "mov" {
		return amd64.Instruction{}, false
	}
	if len(a.Operands) != 2 || len(b.Operands) != 2 || len(c.Operands) != 2 {
		return amd64.Instruction{}, false
	}
	scratch := a.Operands[0]
	if !sameOperand(scratch, b.Operands[0]) || !sameOperand(scratch, c.Operands[1]) {
		return amd64.Instruction{}, false
	}
	x, y := a.Operands[1], b.Operands[1]
	if x.Kind != amd64.OperandReg || y.Kind != amd64.OperandReg {
		return amd64.Instruction{}, false
	}
	dst := c.Operands[0]
	mem := amd64.Mem{HasBase: true, Base: x.Reg, HasIndex: true, Index: y.Reg, Scale: 1}
	return amd64.Instruction{Mnemonic: "lea", Operands: []amd64.Operand{dst, amd64.MemOp(mem)}}, true
}

func sameOperand(a, b amd64.Operand) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == amd64.OperandReg {
		return a.Reg.Enc == b.Reg.Enc && a.Reg.Width == b.Reg.Width && a.Reg.IsXMM == b.Reg.IsXMM
	}
	return false
}

// isDeadSelfMove reports whether ins is "mov x, x" for identical register
// operands.
func isDeadSelfMove(i amd64.Instruction) bool {
	if i.Mnemonic != "mov" || len(i.Operands) != 2 {
		return false
	}
	return sameOperand(i.Operands[0], i.Operands[1])
}

// foldZeroMove rewrites "mov r, 0" into "xor r, r", which the processor
// recognizes as a dependency-breaking idiom.
func foldZeroMove(i amd64.Instruction) amd64.Instruction {
	if i.Mnemonic != "mov" || len(i.Operands) != 2 {
		return i
	}
	dst, src := i.Operands[0], i.Operands[1]
	if dst.Kind != amd64.OperandReg || src.Kind != amd64.OperandImm || src.Imm != 0 {
		return i
	}
	return amd64.Instruction{Mnemonic: "xor", Operands: []amd64.Operand{dst, dst}}
}
