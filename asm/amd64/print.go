package amd64

import (
	"fmt"
	"strconv"
	"strings"
)

var gpr64 = [16]string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
var gpr32 = [16]string{"eax", "ecx", "edx", "ebx", "esp", "ebp", "esi", "edi", "r8d", "r9d", "r10d", "r11d", "r12d", "r13d", "r14d", "r15d"}
var gpr16 = [16]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di", "r8w", "r9w", "r10w", "r11w", "r12w", "r13w", "r14w", "r15w"}
var gpr8 = [16]string{"al", "cl", "dl", "bl", "spl", "bpl", "sil", "dil", "r8b", "r9b", "r10b", "r11b", "r12b", "r13b", "r14b", "r15b"}

func regName(r Reg) string {
	if r.IsXMM {
		return fmt.Sprintf("xmm%d", r.Enc)
	}
	switch r.Width {
	case 8:
		return gpr8[r.Enc]
	case 16:
		return gpr16[r.Enc]
	case 32:
		return gpr32[r.Enc]
	default:
		return gpr64[r.Enc]
	}
}

// Print renders ins as Intel-syntax text matching the literal scenario
// expectations, e.g. "mov eax, edi" or "lea eax, [edi + esi*1]".
func Print(ins Instruction) string {
	if len(ins.Operands) == 0 {
		return ins.Mnemonic
	}
	parts := make([]string, len(ins.Operands))
	for i, o := range ins.Operands {
		parts[i] = printOperand(o)
	}
	return ins.Mnemonic + " " + strings.Join(parts, ", ")
}

func printOperand(o Operand) string {
	switch o.Kind {
	case OperandReg:
		return regName(o.Reg)
	case OperandImm:
		return strconv.FormatInt(o.Imm, 10)
	case OperandMem:
		return printMem(o.Mem)
	case OperandLinkDestination:
		return "<" + o.Symbol + ">"
	case OperandBlockLinkDestination:
		return "<" + o.Label + ">"
	default:
		return "?"
	}
}

func printMem(m Mem) string {
	var sb strings.Builder
	sb.WriteByte('[')
	if m.RIP {
		sb.WriteString("rip")
		if m.Symbol != "" {
			sb.WriteString(" + ")
			sb.WriteString(m.Symbol)
		}
		sb.WriteByte(']')
		return sb.String()
	}
	wrote := false
	if m.HasBase {
		sb.WriteString(regName(m.Base))
		wrote = true
	}
	if m.HasIndex {
		if wrote {
			sb.WriteString(" + ")
		}
		sb.WriteString(regName(m.Index))
		sb.WriteString("*")
		sb.WriteString(strconv.Itoa(int(m.Scale)))
		wrote = true
	}
	if m.Disp != 0 || !wrote {
		if wrote {
			sb.WriteString(" + ")
		}
		sb.WriteString(strconv.Itoa(int(m.Disp)))
	}
	sb.WriteByte(']')
	return sb.String()
}
