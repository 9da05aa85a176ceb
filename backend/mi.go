package backend

import "github.com/loomgen/loomgen/ir"

// MIOp is the universal, target-agnostic pseudo-mnemonic enumeration a
// MachineInstr carries before lowering.
type MIOp byte

const (
	MIInvalid MIOp = iota
	MIMove
	MIFMove
	MIAdd
	MISub
	MIMul
	MIDiv
	MIRem
	MIShl
	MIShr
	MIAnd
	MIOr
	MIXor
	MINeg
	MICmp
	MISetCC
	// MICMovZ/MICMovNZ move Args[0] into Result when the preceding MICmp's
	// operands were equal (Z) or differed (NZ); otherwise Result keeps the
	// fallback value already materialized in it.
	MICMovZ
	MICMovNZ
	MIJump
	MIJumpIf
	MICall
	MIReturn
	MILoad
	MIStore
	MILoadAddr // address-load of a named constant/symbol
	MIPush
	MIPop
	MIProlog
	MIEpilog
	MISwitchArm // one (cmp, conditional-branch) pair of a lowered switch
	MIGetFramePtr
	MIGetStackPtr
)

func (op MIOp) String() string {
	names := [...]string{
		"invalid", "move", "fmove", "add", "sub", "mul", "div", "rem",
		"shl", "shr", "and", "or", "xor", "neg", "cmp", "setcc",
		"cmovz", "cmovnz", "jump", "jumpif", "call", "return", "load",
		"store", "loadaddr", "push", "pop", "prolog", "epilog",
		"switcharm", "getframeptr", "getstackptr",
	}
	if int(op) < len(names) {
		return names[op]
	}
	return "?"
}

// MIOperandKind discriminates the variants a MachineInstr operand may hold
// before lowering: virtual register, already-concrete physical register,
// immediate, or stack slot.
type MIOperandKind byte

const (
	MIOperandVReg MIOperandKind = iota
	MIOperandReal
	MIOperandImm
	MIOperandStack
	MIOperandLabel // a block name, used by MIJump/MIJumpIf
)

// MIOperand is one operand of a MachineInstr.
type MIOperand struct {
	Kind  MIOperandKind
	VR    VReg
	Real  RealReg
	Imm   int64
	Slot  StackSlot
	Label string
	Typ   ir.Type
}

func VRegOperand(v VReg, t ir.Type) MIOperand {
	return MIOperand{Kind: MIOperandVReg, VR: v, Typ: t}
}
func RealOperand(r RealReg, t ir.Type) MIOperand {
	return MIOperand{Kind: MIOperandReal, Real: r, Typ: t}
}
func ImmOperand(v int64, t ir.Type) MIOperand {
	return MIOperand{Kind: MIOperandImm, Imm: v, Typ: t}
}
func StackOperand(s StackSlot, t ir.Type) MIOperand {
	return MIOperand{Kind: MIOperandStack, Slot: s, Typ: t}
}
func LabelOperand(label string) MIOperand {
	return MIOperand{Kind: MIOperandLabel, Label: label}
}

// MachineInstr ("MI") is a pseudo machine instruction: a universal mnemonic,
// an optional result operand, an ordered operand list, and a type tag.
type MachineInstr struct {
	Op     MIOp
	Result *MIOperand
	Args   []MIOperand
	Typ    ir.Type
	Cond   ir.CmpMode // valid for MICmp/MISetCC/MIJumpIf

	// CallTarget names the callee for MICall.
	CallTarget string
}

// Uses returns every VReg this instruction reads.
func (mi *MachineInstr) Uses() []VReg {
	var out []VReg
	for _, a := range mi.Args {
		if a.Kind == MIOperandVReg {
			out = append(out, a.VR)
		}
	}
	return out
}

// Def returns the VReg this instruction defines, if its result is virtual.
func (mi *MachineInstr) Def() (VReg, bool) {
	if mi.Result != nil && mi.Result.Kind == MIOperandVReg {
		return mi.Result.VR, true
	}
	return VRegInvalid, false
}
