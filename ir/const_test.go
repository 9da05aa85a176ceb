package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstInt_TruncatesToTypeWidth(t *testing.T) {
	require.Equal(t, uint64(0xff), ConstInt(I8(), -1).Bits)
	require.Equal(t, uint64(0xffff), ConstInt(I16(), -1).Bits)
	require.Equal(t, uint64(0xffffffff), ConstInt(I32(), -1).Bits)
	require.Equal(t, uint64(0xffffffffffffffff), ConstInt(I64(), -1).Bits)
}

func TestConstInt_Int64SignExtendsSignedNarrowTypes(t *testing.T) {
	require.Equal(t, int64(-1), ConstInt(I8(), -1).Int64())
	require.Equal(t, int64(255), ConstInt(U8(), -1).Int64())
	require.Equal(t, int64(-1), ConstInt(I32(), -1).Int64())
}

func TestConstFloat_RoundTripsThroughBits(t *testing.T) {
	f32 := ConstFloat32(1.5)
	require.Equal(t, float64(1.5), f32.Float64())
	require.Equal(t, TypeF32, f32.Typ.Kind)

	f64 := ConstFloat64(2.25)
	require.Equal(t, 2.25, f64.Float64())
	require.Equal(t, TypeF64, f64.Typ.Kind)
}

func TestConst_AsTypeAndWithValue(t *testing.T) {
	c := ConstInt(I32(), 7)
	require.True(t, c.AsType().Equal(I32()))

	replaced := c.WithValue(42)
	require.Equal(t, uint64(42), replaced.Bits)
	require.True(t, replaced.Typ.Equal(I32()))
}

func TestConst_IsZero(t *testing.T) {
	require.True(t, ConstInt(I32(), 0).IsZero())
	require.False(t, ConstInt(I32(), 1).IsZero())
}

func TestConst_StringRendersIntAndFloatDifferently(t *testing.T) {
	require.Equal(t, "-5", ConstInt(I32(), -5).String())
	require.Equal(t, "1.5", ConstFloat64(1.5).String())
}
