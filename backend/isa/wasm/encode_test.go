package wasm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/ir"
)

func TestLeb128u_SingleByteValuesRoundTripTheirOwnBits(t *testing.T) {
	require.Equal(t, []byte{0x00}, leb128u(0))
	require.Equal(t, []byte{0x7F}, leb128u(127))
}

func TestLeb128u_MultiByteValueSetsContinuationBit(t *testing.T) {
	// 255 = 0b1_1111111: low 7 bits 0x7F with continuation, then 0x01.
	require.Equal(t, []byte{0xFF, 0x01}, leb128u(255))
	// 300 = 0b1_0010_1100: low 7 bits 0x2C with continuation, then 0x02.
	require.Equal(t, []byte{0xAC, 0x02}, leb128u(300))
}

func TestLeb128s_NegativeValueSignExtends(t *testing.T) {
	// -1 fits in a single signed byte: 0x7F has its sign bit set and no
	// higher bits differ, so no continuation byte is emitted.
	require.Equal(t, []byte{0x7F}, leb128s(-1))
	require.Equal(t, []byte{0x00}, leb128s(0))
}

func TestGetSet_EncodeLocalGetAndSetWithIndex(t *testing.T) {
	require.Equal(t, []byte{opLocalGet, 0x00}, get(backend.RealReg(0)))
	require.Equal(t, []byte{opLocalSet, 0x05}, set(backend.RealReg(5)))
}

func TestGetSet_FloatLocalIndexIsRelativeToFloatPool(t *testing.T) {
	floatReg := backend.RealReg(maxLocals + 3)
	require.True(t, IsFloatLocal(floatReg))
	require.Equal(t, uint32(3), LocalIndex(floatReg))
	require.Equal(t, []byte{opLocalGet, 0x03}, get(floatReg))
}

func TestOperandBytes_ImmEmitsI32ConstForNarrowTypeAndI64ConstForWideType(t *testing.T) {
	require.Equal(t, []byte{opI32Const, 0x05}, operandBytes(backend.ImmOperand(5, ir.I32())))
	require.Equal(t, []byte{opI64Const, 0x05}, operandBytes(backend.ImmOperand(5, ir.I64())))
}

func TestEncodeOne_MoveEmitsGetThenSet(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(1), ir.I64())
	m := &backend.MachineInstr{Op: backend.MIMove, Result: &dst, Typ: ir.I64(), Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.I64())}}

	out := encodeOne(m)
	require.Equal(t, append(get(backend.RealReg(0)), set(backend.RealReg(1))...), out)
}

func TestEncodeOne_AddEmitsTwoOperandsThenOpcodeThenSet(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(2), ir.I32())
	m := &backend.MachineInstr{
		Op: backend.MIAdd, Result: &dst, Typ: ir.I32(),
		Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.I32()), backend.RealOperand(backend.RealReg(1), ir.I32())},
	}

	out := encodeOne(m)
	var want []byte
	want = append(want, get(backend.RealReg(0))...)
	want = append(want, get(backend.RealReg(1))...)
	want = append(want, opI32Add)
	want = append(want, set(backend.RealReg(2))...)
	require.Equal(t, want, out)
}

func TestEncodeOne_AddUses64BitOpcodeForWideType(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(2), ir.I64())
	m := &backend.MachineInstr{
		Op: backend.MIAdd, Result: &dst, Typ: ir.I64(),
		Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.I64()), backend.RealOperand(backend.RealReg(1), ir.I64())},
	}

	out := encodeOne(m)
	require.Contains(t, out, byte(opI64Add))
	require.NotContains(t, out, byte(opI32Add))
}

func TestEncodeOne_CmpWritesResultIntoFlagsLocal(t *testing.T) {
	m := &backend.MachineInstr{
		Op: backend.MICmp, Typ: ir.I32(), Cond: ir.CmpLt,
		Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.I32()), backend.RealOperand(backend.RealReg(1), ir.I32())},
	}

	out := encodeOne(m)
	var want []byte
	want = append(want, get(backend.RealReg(0))...)
	want = append(want, get(backend.RealReg(1))...)
	want = append(want, opI32LtS)
	want = append(want, set(flagsLocal)...)
	require.Equal(t, want, out)
}

func TestEncodeOne_SetCCReadsFlagsLocalIntoResult(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(3), ir.I32())
	m := &backend.MachineInstr{Op: backend.MISetCC, Result: &dst, Typ: ir.I32()}

	out := encodeOne(m)
	require.Equal(t, append(get(flagsLocal), set(backend.RealReg(3))...), out)
}

func TestEncodeOne_JumpIfReadsFlagsLocalThenBrIf(t *testing.T) {
	m := &backend.MachineInstr{Op: backend.MIJumpIf, Typ: ir.Void()}

	out := encodeOne(m)
	want := append(get(flagsLocal), opBrIf)
	want = append(want, leb128u(0)...)
	require.Equal(t, want, out)
}

func TestEncodeOne_JumpEmitsBrWithPlaceholderDepth(t *testing.T) {
	m := &backend.MachineInstr{Op: backend.MIJump, Typ: ir.Void()}
	out := encodeOne(m)
	require.Equal(t, []byte{opBr, 0x00}, out)
}

func TestEncodeOne_CallEmitsCallWithPlaceholderIndex(t *testing.T) {
	m := &backend.MachineInstr{Op: backend.MICall, Typ: ir.Void(), CallTarget: "g"}
	out := encodeOne(m)
	require.Equal(t, []byte{opCall, 0x00}, out)
}

func TestEncodeOne_ReturnEmitsSingleByte(t *testing.T) {
	m := &backend.MachineInstr{Op: backend.MIReturn, Typ: ir.Void()}
	require.Equal(t, []byte{opReturn}, encodeOne(m))
}

func TestEncodeOne_LoadAndStoreUseWidthAppropriateOpcodeAndAlignment(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(1), ir.I64())
	load := &backend.MachineInstr{Op: backend.MILoad, Result: &dst, Typ: ir.I64(), Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.Ptr())}}
	out := encodeOne(load)
	var want []byte
	want = append(want, get(backend.RealReg(0))...)
	want = append(want, opI64Load, 0x03, 0x00)
	want = append(want, set(backend.RealReg(1))...)
	require.Equal(t, want, out)

	store := &backend.MachineInstr{Op: backend.MIStore, Typ: ir.I32(), Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.Ptr()), backend.RealOperand(backend.RealReg(1), ir.I32())}}
	out = encodeOne(store)
	want = nil
	want = append(want, get(backend.RealReg(0))...)
	want = append(want, get(backend.RealReg(1))...)
	want = append(want, opI32Store, 0x02, 0x00)
	require.Equal(t, want, out)
}

func TestEncodeOne_CMovNZFoldsToNativeSelect(t *testing.T) {
	dst := backend.RealOperand(backend.RealReg(2), ir.I64())
	m := &backend.MachineInstr{
		Op: backend.MICMovNZ, Result: &dst, Typ: ir.I64(),
		Args: []backend.MIOperand{backend.RealOperand(backend.RealReg(0), ir.I64())},
	}

	out := encodeOne(m)
	var want []byte
	want = append(want, get(backend.RealReg(0))...) // a (val1)
	want = append(want, get(backend.RealReg(2))...) // b, currently in dst (val2)
	want = append(want, get(flagsLocal)...)         // cond (c)
	want = append(want, opSelect)
	want = append(want, set(backend.RealReg(2))...)
	require.Equal(t, want, out)
}

func TestEncode_ConcatenatesBlocksInOrder(t *testing.T) {
	ret := &backend.MachineInstr{Op: backend.MIReturn, Typ: ir.Void()}
	instrs := map[string][]*backend.MachineInstr{
		"a": {ret},
		"b": {ret},
	}

	out := Encode([]string{"a", "b"}, instrs)
	require.Equal(t, []byte{opReturn, opReturn}, out)
}

func TestCmpOpcode_SelectsSignedComparisonByWidthAndMode(t *testing.T) {
	require.Equal(t, byte(opI32LtS), cmpOpcode(ir.CmpLt, ir.I32()))
	require.Equal(t, byte(opI64LtS), cmpOpcode(ir.CmpLt, ir.I64()))
	require.Equal(t, byte(opI32Eq), cmpOpcode(ir.CmpEq, ir.I32()))
	require.Equal(t, byte(opI64GeS), cmpOpcode(ir.CmpGe, ir.I64()))
}
