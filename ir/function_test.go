package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFunction_AppendBlockPanicsOnDuplicateName(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	f.AppendBlock("entry")
	require.Panics(t, func() {
		f.AppendBlock("entry")
	})
}

func TestFunction_EntryReturnsFirstAppendedBlock(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	_, ok := f.Entry()
	require.False(t, ok)

	first := f.AppendBlock("entry")
	f.AppendBlock("second")
	entry, ok := f.Entry()
	require.True(t, ok)
	require.Same(t, first, entry)
}

func TestFunction_BlockLooksUpByName(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	b := f.AppendBlock("entry")
	got, ok := f.Block("entry")
	require.True(t, ok)
	require.Same(t, b, got)

	_, ok = f.Block("missing")
	require.False(t, ok)
}

func TestFunction_KeepBlocksFiltersAndUpdatesLookup(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	f.AppendBlock("entry")
	f.AppendBlock("dead")

	removed := f.KeepBlocks(func(b *Block) bool { return b.Name != "dead" })
	require.True(t, removed)
	require.Len(t, f.Blocks, 1)
	require.Equal(t, "entry", f.Blocks[0].Name)

	_, ok := f.Block("dead")
	require.False(t, ok)
	_, ok = f.Block("entry")
	require.True(t, ok)
}

func TestFunction_KeepBlocksReportsNoRemoval(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	f.AppendBlock("entry")
	removed := f.KeepBlocks(func(b *Block) bool { return true })
	require.False(t, removed)
	require.Len(t, f.Blocks, 1)
}

func TestFunction_AllVariablesWalksBlocksInOrder(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	entry := f.AppendBlock("entry")
	a := Variable{Name: "0", Typ: I32()}
	b := Variable{Name: "1", Typ: I32()}
	entry.Push(NewAssign(a, OperandFromConst(ConstInt(I32(), 1))))
	entry.Push(NewAssign(b, OperandFromConst(ConstInt(I32(), 2))))
	entry.Push(NewReturnVoid())

	vars := f.AllVariables()
	require.Equal(t, []Variable{a, b}, vars)
}

func TestFunction_DefiningNodeLocatesNodeAndBlock(t *testing.T) {
	f := NewFunction("f", Signature{Ret: Void()})
	entry := f.AppendBlock("entry")
	v := Variable{Name: "0", Typ: I32()}
	def := NewAssign(v, OperandFromConst(ConstInt(I32(), 1)))
	entry.Push(def)
	entry.Push(NewReturnVoid())

	node, blk, ok := f.DefiningNode("0")
	require.True(t, ok)
	require.Same(t, def, node)
	require.Same(t, entry, blk)

	_, _, ok = f.DefiningNode("missing")
	require.False(t, ok)
}

func TestFunction_String(t *testing.T) {
	f := NewFunction("add", Signature{Ret: I32()})
	require.Equal(t, "function add", f.String())
}
