package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEval_FloatConstantFold(t *testing.T) {
	out := Variable{Name: "0", Typ: F64()}
	n := NewBinary(OpMul, out, OperandFromConst(ConstFloat64(2)), OperandFromConst(ConstFloat64(3)))
	folded, ok := n.Eval()
	require.True(t, ok)
	require.Equal(t, 6.0, folded.Ins[0].Const.Float64())
}

func TestEval_DivByZeroDoesNotFold(t *testing.T) {
	out := Variable{Name: "0", Typ: I32()}
	n := NewBinary(OpDiv, out, OperandFromConst(ConstInt(I32(), 4)), OperandFromConst(ConstInt(I32(), 0)))
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestEval_FloatDivByZeroDoesNotFold(t *testing.T) {
	out := Variable{Name: "0", Typ: F64()}
	n := NewBinary(OpDiv, out, OperandFromConst(ConstFloat64(4)), OperandFromConst(ConstFloat64(0)))
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestEval_RemByZeroDoesNotFold(t *testing.T) {
	out := Variable{Name: "0", Typ: I32()}
	n := NewBinary(OpRem, out, OperandFromConst(ConstInt(I32(), 4)), OperandFromConst(ConstInt(I32(), 0)))
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestEval_SelfDivIsOne(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	x := OperandFromVar(Variable{Name: "0", Typ: I32()})
	n := NewBinary(OpDiv, out, x, x)
	folded, ok := n.Eval()
	require.True(t, ok)
	require.Equal(t, int64(1), folded.Ins[0].Const.Int64())
}

func TestEval_SelfAndOrIsIdentity(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	x := OperandFromVar(Variable{Name: "0", Typ: I32()})

	and := NewBinary(OpAnd, out, x, x)
	folded, ok := and.Eval()
	require.True(t, ok)
	require.False(t, folded.Ins[0].IsConst)

	or := NewBinary(OpOr, out, x, x)
	folded, ok = or.Eval()
	require.True(t, ok)
	require.False(t, folded.Ins[0].IsConst)
}

func TestEval_MulByZeroIsZero(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	x := OperandFromVar(Variable{Name: "0", Typ: I32()})
	n := NewBinary(OpMul, out, x, OperandFromConst(ConstInt(I32(), 0)))
	folded, ok := n.Eval()
	require.True(t, ok)
	require.True(t, folded.Ins[0].IsConst)
	require.True(t, folded.Ins[0].Const.IsZero())
}

func TestEval_AndZeroIsZero(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	x := OperandFromVar(Variable{Name: "0", Typ: I32()})
	n := NewBinary(OpAnd, out, x, OperandFromConst(ConstInt(I32(), 0)))
	folded, ok := n.Eval()
	require.True(t, ok)
	require.True(t, folded.Ins[0].Const.IsZero())
}

func TestEval_NonIdentityBinaryWithVariableAndConstDoesNotFold(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	x := OperandFromVar(Variable{Name: "0", Typ: I32()})
	n := NewBinary(OpAdd, out, x, OperandFromConst(ConstInt(I32(), 5)))
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestEval_CmpFoldsConstantOperandsIntPath(t *testing.T) {
	out := Variable{Name: "2", Typ: I8()}
	n := NewCmp(out, CmpLt, OperandFromConst(ConstInt(I32(), 1)), OperandFromConst(ConstInt(I32(), 2)))
	folded, ok := n.Eval()
	require.True(t, ok)
	require.Equal(t, int64(1), folded.Ins[0].Const.Int64())
}

func TestEval_CmpFoldsConstantOperandsFloatPath(t *testing.T) {
	out := Variable{Name: "2", Typ: I8()}
	n := NewCmp(out, CmpGe, OperandFromConst(ConstFloat64(3)), OperandFromConst(ConstFloat64(3)))
	folded, ok := n.Eval()
	require.True(t, ok)
	require.Equal(t, int64(1), folded.Ins[0].Const.Int64())
}

func TestEval_CmpDoesNotFoldNonConstantOperands(t *testing.T) {
	out := Variable{Name: "2", Typ: I8()}
	n := NewCmp(out, CmpEq, OperandFromVar(Variable{Name: "0", Typ: I32()}), OperandFromConst(ConstInt(I32(), 2)))
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestEval_SwitchWithNoCasesBecomesBr(t *testing.T) {
	def := NewBlock("default")
	n := NewSwitch(OperandFromVar(Variable{Name: "0", Typ: I32()}), nil, def)
	folded, ok := n.Eval()
	require.True(t, ok)
	require.Equal(t, OpBr, folded.Op)
	require.Same(t, def, folded.Target)
}

func TestEval_SwitchWithCasesDoesNotFold(t *testing.T) {
	def := NewBlock("default")
	arm := NewBlock("arm")
	n := NewSwitch(OperandFromVar(Variable{Name: "0", Typ: I32()}),
		[]SwitchCase{{Value: ConstInt(I32(), 1), Target: arm}}, def)
	_, ok := n.Eval()
	require.False(t, ok)
}

func TestMaybeInline_NoSubstitutionReturnsFalse(t *testing.T) {
	out := Variable{Name: "1", Typ: I32()}
	n := NewAssign(out, OperandFromConst(ConstInt(I32(), 1)))
	_, ok := n.MaybeInline(map[string]Const{"unrelated": ConstInt(I32(), 9)})
	require.False(t, ok)
}

func TestMaybeInline_SubstitutesPhiIncomingValues(t *testing.T) {
	out := Variable{Name: "2", Typ: I32()}
	blk := NewBlock("pred")
	n := NewPhi(out, []PhiIncoming{{Block: blk, Value: OperandFromVar(Variable{Name: "0", Typ: I32()})}})

	inlined, ok := n.MaybeInline(map[string]Const{"0": ConstInt(I32(), 4)})
	require.True(t, ok)
	require.True(t, inlined.Incoming[0].Value.IsConst)
	require.Equal(t, int64(4), inlined.Incoming[0].Value.Const.Int64())
}

func TestCmpMode_StringAndInvert(t *testing.T) {
	require.Equal(t, "eq", CmpEq.String())
	require.Equal(t, "ne", CmpNe.String())
	require.Equal(t, "lt", CmpLt.String())
	require.Equal(t, "le", CmpLe.String())
	require.Equal(t, "gt", CmpGt.String())
	require.Equal(t, "ge", CmpGe.String())

	require.Equal(t, CmpNe, CmpEq.Invert())
	require.Equal(t, CmpEq, CmpNe.Invert())
	require.Equal(t, CmpGe, CmpLt.Invert())
	require.Equal(t, CmpGt, CmpLe.Invert())
	require.Equal(t, CmpLe, CmpGt.Invert())
	require.Equal(t, CmpLt, CmpGe.Invert())
}
