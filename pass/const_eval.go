package pass

import "github.com/loomgen/loomgen/ir"

// ConstEval applies Eval/MaybeInline per node while tracking the
// last-known constant binding for each variable, across one function: a
// constant produced by one node is substituted into every later use within
// the same function, not just the same block, since SSA variables are
// function-scoped.
func ConstEval() Pass {
	return &functionPass{name: "const-eval", fn: constEvalFunc}
}

func constEvalFunc(fn *ir.Function) bool {
	known := map[string]ir.Const{}
	changed := false
	for _, b := range fn.Blocks {
		for i, n := range b.Nodes {
			cur := n
			if inlined, ok := cur.MaybeInline(known); ok {
				cur = inlined
				b.Nodes[i] = cur
				changed = true
			}
			if folded, ok := cur.Eval(); ok {
				cur = folded
				b.Nodes[i] = cur
				changed = true
			}
			if cur.Op == ir.OpAssign && cur.Out != nil && len(cur.Ins) == 1 && cur.Ins[0].IsConst {
				known[cur.Out.Name] = cur.Ins[0].Const
			}
		}
	}
	return changed
}
