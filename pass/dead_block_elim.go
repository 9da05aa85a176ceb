package pass

import "github.com/loomgen/loomgen/ir"

// DeadBlockElim removes blocks never referenced by any branch/switch
// terminator, except the entry block (always kept, since it is reachable by
// construction — the function's caller enters there).
func DeadBlockElim() Pass {
	return &functionPass{name: "dead-block-elim", fn: deadBlockElimFunc}
}

func deadBlockElimFunc(fn *ir.Function) bool {
	entry, ok := fn.Entry()
	if !ok {
		return false
	}
	referenced := map[string]bool{entry.Name: true}
	for _, b := range fn.Blocks {
		for _, s := range b.Successors() {
			referenced[s.Name] = true
		}
	}
	return fn.KeepBlocks(func(b *ir.Block) bool { return referenced[b.Name] })
}
