package backend

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomgen/loomgen/ir"
)

func TestMIOp_StringCoversEveryDefinedOpcode(t *testing.T) {
	require.Equal(t, "add", MIAdd.String())
	require.Equal(t, "getstackptr", MIGetStackPtr.String())
	require.Equal(t, "?", MIOp(200).String())
}

func TestMIOperand_Constructors(t *testing.T) {
	vr := NewVReg(1)
	require.Equal(t, MIOperandVReg, VRegOperand(vr, ir.I64()).Kind)
	require.Equal(t, MIOperandReal, RealOperand(RealReg(2), ir.I64()).Kind)
	require.Equal(t, MIOperandImm, ImmOperand(9, ir.I32()).Kind)
	require.Equal(t, int64(9), ImmOperand(9, ir.I32()).Imm)
	require.Equal(t, MIOperandStack, StackOperand(StackSlot(-8), ir.Ptr()).Kind)
	require.Equal(t, MIOperandLabel, LabelOperand("block1").Kind)
	require.Equal(t, "block1", LabelOperand("block1").Label)
}

func TestMachineInstr_UsesCollectsOnlyVRegArgs(t *testing.T) {
	a := NewVReg(1)
	b := NewVReg(2)
	mi := &MachineInstr{
		Op:   MIAdd,
		Args: []MIOperand{VRegOperand(a, ir.I64()), ImmOperand(3, ir.I64()), VRegOperand(b, ir.I64())},
	}
	uses := mi.Uses()
	require.Len(t, uses, 2)
	require.Equal(t, a, uses[0])
	require.Equal(t, b, uses[1])
}

func TestMachineInstr_DefReturnsResultOnlyWhenVirtual(t *testing.T) {
	v := NewVReg(5)
	vresult := VRegOperand(v, ir.I64())
	withVReg := &MachineInstr{Op: MIMove, Result: &vresult}
	def, ok := withVReg.Def()
	require.True(t, ok)
	require.Equal(t, v, def)

	realResult := RealOperand(RealReg(0), ir.I64())
	withReal := &MachineInstr{Op: MIMove, Result: &realResult}
	_, ok = withReal.Def()
	require.False(t, ok)

	noResult := &MachineInstr{Op: MIReturn}
	_, ok = noResult.Def()
	require.False(t, ok)
}
