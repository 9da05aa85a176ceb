package pass

import "github.com/loomgen/loomgen/ir"

// UnusedCallRemoval removes calls to functions in pureFuncs (leaf,
// side-effect-free functions) whose result is dead. The caller supplies
// pureFuncs explicitly: purity is not something this IR tracks per
// function (no effect-analysis pass exists here), so a conservative,
// caller-declared allow-list stands in for a real leaf/purity analysis.
func UnusedCallRemoval(pureFuncs map[string]bool) Pass {
	return &functionPass{name: "unused-call-removal", fn: func(fn *ir.Function) bool {
		return unusedCallRemovalFunc(fn, pureFuncs)
	}}
}

func unusedCallRemovalFunc(fn *ir.Function, pureFuncs map[string]bool) bool {
	changed := false
	for _, b := range fn.Blocks {
		var out []*ir.Node
		for _, n := range b.Nodes {
			if n.Op == ir.OpCall && !n.Intrinsic && pureFuncs[n.Callee] {
				if out2, ok := n.OutputVar(); !ok || !usedAnywhere(fn, out2.Name) {
					changed = true
					continue
				}
			}
			out = append(out, n)
		}
		b.Nodes = out
	}
	return changed
}
