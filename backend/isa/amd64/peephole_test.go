package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomgen/loomgen/asm/amd64"
)

func TestPeephole_FusesMovAddMovIntoLea(t *testing.T) {
	scratch := amd64.RegOp(EncAX, 64)
	x := amd64.RegOp(EncBX, 64)
	y := amd64.RegOp(EncCX, 64)
	dst := amd64.RegOp(EncDX, 64)
	in := []amd64.Instruction{
		{Mnemonic: "mov", Operands: []amd64.Operand{scratch, x}},
		{Mnemonic: "add", Operands: []amd64.Operand{scratch, y}},
		{Mnemonic: "mov", Operands: []amd64.Operand{dst, scratch}},
	}

	out := peephole(in, 0)
	require.Len(t, out, 1)
	require.Equal(t, "lea", out[0].Mnemonic)
	require.Equal(t, dst, out[0].Operands[0])
	require.Equal(t, amd64.OperandMem, out[0].Operands[1].Kind)
	require.Equal(t, x.Reg, out[0].Operands[1].Mem.Base)
	require.Equal(t, y.Reg, out[0].Operands[1].Mem.Index)
}

func TestPeephole_DropsDeadSelfMove(t *testing.T) {
	r := amd64.RegOp(EncAX, 64)
	in := []amd64.Instruction{
		{Mnemonic: "mov", Operands: []amd64.Operand{r, r}},
		{Mnemonic: "ret"},
	}

	out := peephole(in, 0)
	require.Len(t, out, 1)
	require.Equal(t, "ret", out[0].Mnemonic)
}

func TestPeephole_FoldsMovZeroIntoXor(t *testing.T) {
	r := amd64.RegOp(EncAX, 32)
	in := []amd64.Instruction{
		{Mnemonic: "mov", Operands: []amd64.Operand{r, amd64.ImmOp(0, 4)}},
	}

	out := peephole(in, 0)
	require.Len(t, out, 1)
	require.Equal(t, "xor", out[0].Mnemonic)
	require.Equal(t, r, out[0].Operands[0])
	require.Equal(t, r, out[0].Operands[1])
}

func TestPeephole_LeavesNonzeroMovUntouched(t *testing.T) {
	r := amd64.RegOp(EncAX, 32)
	in := []amd64.Instruction{
		{Mnemonic: "mov", Operands: []amd64.Operand{r, amd64.ImmOp(5, 4)}},
	}

	out := peephole(in, 0)
	require.Len(t, out, 1)
	require.Equal(t, "mov", out[0].Mnemonic)
}

func TestPeephole_DoesNotFuseWhenAddTargetsADifferentRegister(t *testing.T) {
	scratch := amd64.RegOp(EncAX, 64)
	x := amd64.RegOp(EncBX, 64)
	y := amd64.RegOp(EncCX, 64)
	dst := amd64.RegOp(EncDX, 64)
	// the add's destination differs from the first mov's scratch, so this
	// is not the mov/add/mov-into-scratch shape tryFuseLea matches.
	in := []amd64.Instruction{
		{Mnemonic: "mov", Operands: []amd64.Operand{scratch, x}},
		{Mnemonic: "add", Operands: []amd64.Operand{dst, y}},
		{Mnemonic: "mov", Operands: []amd64.Operand{dst, scratch}},
	}

	out := peephole(in, 0)
	require.Len(t, out, 3)
}

func TestPeephole_ConvergesWithinDefaultIterationBound(t *testing.T) {
	// A chain of n independent mov-zero instructions all fold to xor in one
	// pass each, but the fixed point must still be reached within the
	// package default bound regardless of chain length.
	var in []amd64.Instruction
	for i := 0; i < 5; i++ {
		in = append(in, amd64.Instruction{Mnemonic: "mov", Operands: []amd64.Operand{amd64.RegOp(EncAX, 32), amd64.ImmOp(0, 4)}})
	}
	out := peephole(in, 0)
	require.Len(t, out, 5)
	for _, i := range out {
		require.Equal(t, "xor", i.Mnemonic)
	}
}
