package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestType_ByteSizeAndBitSizePerKind(t *testing.T) {
	cases := []struct {
		ty   Type
		size int
	}{
		{I8(), 1}, {U8(), 1},
		{I16(), 2}, {U16(), 2},
		{I32(), 4}, {U32(), 4}, {F32(), 4},
		{I64(), 8}, {U64(), 8}, {F64(), 8}, {Ptr(), 8},
		{Void(), 0},
	}
	for _, c := range cases {
		require.Equal(t, c.size, c.ty.ByteSize(), c.ty.String())
		require.Equal(t, c.size*8, c.ty.BitSize(), c.ty.String())
	}
}

func TestType_VecByteSizeIsLanesTimesElemSize(t *testing.T) {
	v := Vec(I32(), 4)
	require.Equal(t, 16, v.ByteSize())
	require.Equal(t, 128, v.BitSize())
}

func TestType_SignedOnlyForSignedIntKinds(t *testing.T) {
	require.True(t, I8().Signed())
	require.True(t, I64().Signed())
	require.False(t, U8().Signed())
	require.False(t, F32().Signed())
	require.False(t, Ptr().Signed())
}

func TestType_FloatOnlyForF32AndF64(t *testing.T) {
	require.True(t, F32().Float())
	require.True(t, F64().Float())
	require.False(t, I32().Float())
}

func TestType_IsVectorAndIsInt(t *testing.T) {
	require.True(t, Vec(F32(), 2).IsVector())
	require.False(t, I32().IsVector())

	require.True(t, I32().IsInt())
	require.True(t, U64().IsInt())
	require.False(t, F32().IsInt())
	require.False(t, Ptr().IsInt())
}

func TestType_EqualRecursesIntoVectorElement(t *testing.T) {
	require.True(t, I32().Equal(I32()))
	require.False(t, I32().Equal(I64()))

	require.True(t, Vec(I32(), 4).Equal(Vec(I32(), 4)))
	require.False(t, Vec(I32(), 4).Equal(Vec(I32(), 2)))
	require.False(t, Vec(I32(), 4).Equal(Vec(I64(), 4)))
}

func TestType_StringPerKind(t *testing.T) {
	require.Equal(t, "i8", I8().String())
	require.Equal(t, "u32", U32().String())
	require.Equal(t, "f64", F64().String())
	require.Equal(t, "ptr", Ptr().String())
	require.Equal(t, "void", Void().String())
	require.Equal(t, "<4 x i32>", Vec(I32(), 4).String())
	require.Equal(t, "invalid", Type{Kind: TypeInvalid}.String())
}
