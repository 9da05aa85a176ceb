package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpcode_StringCoversEveryDefinedOpcode(t *testing.T) {
	require.Equal(t, "add", OpAdd.String())
	require.Equal(t, "vecinsert", OpVecInsert.String())
	require.Equal(t, "invalid", Opcode(200).String())
}

func TestNode_InputVarsSkipsConstantsAndCollectsPhiIncoming(t *testing.T) {
	x := Variable{Name: "0", Typ: I32()}
	n := NewBinary(OpAdd, Variable{Name: "1", Typ: I32()}, OperandFromVar(x), OperandFromConst(ConstInt(I32(), 2)))
	require.Equal(t, []Variable{x}, n.InputVars())

	y := Variable{Name: "2", Typ: I32()}
	phi := NewPhi(Variable{Name: "3", Typ: I32()}, []PhiIncoming{
		{Block: NewBlock("p0"), Value: OperandFromVar(y)},
		{Block: NewBlock("p1"), Value: OperandFromConst(ConstInt(I32(), 9))},
	})
	require.Equal(t, []Variable{y}, phi.InputVars())
}

func TestNode_OutputVarReportsAbsence(t *testing.T) {
	v, ok := NewReturnVoid().OutputVar()
	require.False(t, ok)
	require.Equal(t, Variable{}, v)

	out := Variable{Name: "0", Typ: I32()}
	v, ok = NewAssign(out, OperandFromConst(ConstInt(I32(), 1))).OutputVar()
	require.True(t, ok)
	require.Equal(t, out, v)
}

func TestNode_IsTerminatorPerOpcode(t *testing.T) {
	require.True(t, NewBr(NewBlock("t")).IsTerminator())
	require.True(t, NewReturnVoid().IsTerminator())
	require.False(t, NewAssign(Variable{Name: "0", Typ: I32()}, OperandFromConst(ConstInt(I32(), 1))).IsTerminator())
}

func TestNode_HasSideEffectPerOpcode(t *testing.T) {
	require.True(t, NewStore(OperandFromConst(ConstInt(I32(), 1)), OperandFromVar(Variable{Name: "0", Typ: Ptr()})).HasSideEffect())
	require.True(t, NewCall(nil, "f", false, nil, Void()).HasSideEffect())
	require.False(t, NewAssign(Variable{Name: "0", Typ: I32()}, OperandFromConst(ConstInt(I32(), 1))).HasSideEffect())
}

func TestNode_EqualComparesOpTypeOutAndIns(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	a := NewBinary(OpAdd, out, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	b := NewBinary(OpAdd, out, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	require.True(t, a.Equal(b))

	c := NewBinary(OpAdd, out, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 3)))
	require.False(t, a.Equal(c))

	d := NewBinary(OpSub, out, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	require.False(t, a.Equal(d))
}

func TestNode_EqualComparesCmpModeAndCallFields(t *testing.T) {
	out := Variable{Name: "2", Typ: I8()}
	lt := NewCmp(out, CmpLt, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	ge := NewCmp(out, CmpGe, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	require.False(t, lt.Equal(ge))

	call1 := NewCall(nil, "f", false, nil, Void())
	call2 := NewCall(nil, "g", false, nil, Void())
	require.False(t, call1.Equal(call2))

	intrinsic := NewCall(nil, "f", true, nil, Void())
	require.False(t, call1.Equal(intrinsic))
}

func TestNode_EqualMismatchedOutPresence(t *testing.T) {
	withOut := NewAssign(Variable{Name: "0", Typ: I32()}, OperandFromConst(ConstInt(I32(), 1)))
	withoutOut := NewReturnVoid()
	require.False(t, withOut.Equal(withoutOut))
}

func TestVariable_String(t *testing.T) {
	require.Equal(t, "%x", Variable{Name: "x"}.String())
}

func TestOperand_TypeAndString(t *testing.T) {
	constOp := OperandFromConst(ConstInt(I32(), 3))
	require.True(t, constOp.Type().Equal(I32()))
	require.Equal(t, "i32 3", constOp.String())

	varOp := OperandFromVar(Variable{Name: "x", Typ: I64()})
	require.True(t, varOp.Type().Equal(I64()))
	require.Equal(t, "%x", varOp.String())
}

func TestOperand_EqualDistinguishesConstAndVarKind(t *testing.T) {
	constOp := OperandFromConst(ConstInt(I32(), 3))
	varOp := OperandFromVar(Variable{Name: "x", Typ: I32()})
	require.False(t, constOp.Equal(varOp))

	require.True(t, constOp.Equal(OperandFromConst(ConstInt(I32(), 3))))
	require.False(t, constOp.Equal(OperandFromConst(ConstInt(I32(), 4))))

	require.True(t, varOp.Equal(OperandFromVar(Variable{Name: "x", Typ: I32()})))
	require.False(t, varOp.Equal(OperandFromVar(Variable{Name: "y", Typ: I32()})))
}
