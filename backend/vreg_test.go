package backend

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVReg_NewVRegIsUnallocated(t *testing.T) {
	v := NewVReg(7)
	require.True(t, v.Valid())
	require.False(t, v.IsAllocated())
	require.Equal(t, RealRegInvalid, v.RealReg())
	require.Equal(t, VRegID(7), v.ID())
}

func TestVReg_WithRealRegPreservesIDAndSetsAllocated(t *testing.T) {
	v := NewVReg(3).WithRealReg(RealReg(5))
	require.True(t, v.IsAllocated())
	require.Equal(t, RealReg(5), v.RealReg())
	require.Equal(t, VRegID(3), v.ID())
}

func TestVReg_DistinctIDsStayDistinctAfterAllocation(t *testing.T) {
	a := NewVReg(1).WithRealReg(RealReg(0))
	b := NewVReg(2).WithRealReg(RealReg(0))
	require.NotEqual(t, a, b)
	require.Equal(t, a.RealReg(), b.RealReg())
}

func TestAllocator_FreshMintsIncreasingDistinctIDs(t *testing.T) {
	a := NewAllocator()
	first := a.Fresh()
	second := a.Fresh()
	require.NotEqual(t, first.ID(), second.ID())
	require.Less(t, uint32(first.ID()), uint32(second.ID()))
	require.False(t, first.IsAllocated())
	require.False(t, second.IsAllocated())
}
