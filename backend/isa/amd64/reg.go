// Package amd64 is the x86-64 Machine: instruction selection from dag.Node
// to backend.MachineInstr, the SystemV and Windows fast-call ABI hooks, and
// the post-allocation lowering/peephole pass that turns MachineInstr into
// asm/amd64.Instruction.
package amd64

import "github.com/loomgen/loomgen/backend"

// Real register ids. GPRs 0-15 follow the x86-64 encoding order; XMM0-15
// follow at a disjoint offset so RealReg stays a flat space.
const (
	RAX backend.RealReg = iota
	RCX
	RDX
	RBX
	RSP
	RBP
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15
	XMM0
	XMM1
	XMM2
	XMM3
	XMM4
	XMM5
	XMM6
	XMM7
	XMM8
	XMM9
	XMM10
	XMM11
	XMM12
	XMM13
	XMM14
	XMM15
)

// Enc returns the 4-bit ModR/M encoding for a GPR RealReg (RAX..R15 -> 0..15).
func Enc(r backend.RealReg) byte { return byte(r) }

// XMMEnc returns the 4-bit encoding for an XMM RealReg.
func XMMEnc(r backend.RealReg) byte { return byte(r - XMM0) }

type registerFile struct {
	gpr   []backend.Register
	float []backend.Register
}

// NewRegisterFile builds the x86-64 physical register table: 16 GPRs minus
// RSP/RBP (reserved for the frame) as allocatable general-purpose
// candidates, and 16 XMMs, with the SystemV callee-saved set flagged
// (RBX, RBP, R12-R15) and the encode-needs-REX-prefix bit set for R8-R15
// and XMM8-XMM15.
func NewRegisterFile() backend.RegisterFile {
	names := []string{"rax", "rcx", "rdx", "rbx", "rsp", "rbp", "rsi", "rdi", "r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"}
	calleeSaved := map[backend.RealReg]bool{RBX: true, RBP: true, R12: true, R13: true, R14: true, R15: true}
	rf := &registerFile{}
	for i, name := range names {
		real := backend.RealReg(i)
		if real == RSP || real == RBP {
			continue // reserved: stack/frame pointer, never allocated to a value
		}
		rf.gpr = append(rf.gpr, backend.Register{
			Real: real, Name: name, BitSize: 64, Class: backend.RegClassGPR,
			CalleeSaved: calleeSaved[real], NeedsPrefix: real >= R8,
		})
	}
	for i := 0; i < 16; i++ {
		real := XMM0 + backend.RealReg(i)
		rf.float = append(rf.float, backend.Register{
			Real: real, Name: "xmm", BitSize: 128, Class: backend.RegClassFloat,
			CalleeSaved: real >= XMM6, NeedsPrefix: i >= 8, SIMDCapable: true,
		})
	}
	return rf
}

func (rf *registerFile) Registers(class backend.RegClass) []backend.Register {
	switch class {
	case backend.RegClassGPR:
		return append([]backend.Register(nil), rf.gpr...)
	case backend.RegClassFloat, backend.RegClassVector:
		return append([]backend.Register(nil), rf.float...)
	default:
		return nil
	}
}

func (rf *registerFile) Lookup(r backend.RealReg) backend.Register {
	for _, reg := range rf.gpr {
		if reg.Real == r {
			return reg
		}
	}
	for _, reg := range rf.float {
		if reg.Real == r {
			return reg
		}
	}
	return backend.Register{Real: backend.RealRegInvalid}
}

func (rf *registerFile) CalleeSaved() []backend.Register {
	var out []backend.Register
	for _, reg := range rf.gpr {
		if reg.CalleeSaved {
			out = append(out, reg)
		}
	}
	for _, reg := range rf.float {
		if reg.CalleeSaved {
			out = append(out, reg)
		}
	}
	return out
}
