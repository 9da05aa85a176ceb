package pass

import "github.com/loomgen/loomgen/ir"

// hasSideEffect reports whether a node's removal would be observable even
// when its output is unused: stores, calls (conservatively — a specific
// leaf/pure callee is unused_call_removal's job, not this pass's), debug
// nodes, and every terminator.
func hasSideEffect(n *ir.Node) bool {
	switch n.Op {
	case ir.OpStore, ir.OpCall, ir.OpDebugNode,
		ir.OpBr, ir.OpBrCond, ir.OpSwitch, ir.OpReturn:
		return true
	default:
		return false
	}
}

func usedAnywhere(fn *ir.Function, name string) bool {
	for _, b := range fn.Blocks {
		for _, n := range b.Nodes {
			for _, v := range n.InputVars() {
				if v.Name == name {
					return true
				}
			}
		}
	}
	return false
}

// DeadNodeElim runs two passes scanning from each block's tail, removing
// any node whose output is not consumed anywhere in the function and which
// has no observable side effect. Two passes rather than one catch a chain
// where removing the first dead node only then makes its sole input's
// producer dead too (e.g. `a := b + 1; _unused := a + 2` — the first pass
// removes the second node, the second pass then finds `a` itself unused).
func DeadNodeElim() Pass {
	return &functionPass{name: "dead-node-elim", fn: deadNodeElimFunc}
}

func deadNodeElimFunc(fn *ir.Function) bool {
	changed := false
	for pass := 0; pass < 2; pass++ {
		for _, b := range fn.Blocks {
			var kept []*ir.Node
			for i := len(b.Nodes) - 1; i >= 0; i-- {
				n := b.Nodes[i]
				if out, ok := n.OutputVar(); ok && !hasSideEffect(n) && !usedAnywhere(fn, out.Name) {
					changed = true
					continue
				}
				kept = append(kept, n)
			}
			for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
				kept[i], kept[j] = kept[j], kept[i]
			}
			b.Nodes = kept
		}
	}
	return changed
}
