package pass

import "github.com/loomgen/loomgen/ir"

// InstructionCombine rewrites specific recognized patterns directly into
// cheaper equivalents, independent of constant propagation:
//   - select(cond, 1, 0) -> cast cond to out_ty
//   - select(cond, 0, 1) -> cast (not cond) to out_ty
//
// The second rule is a supplement to the first: it is the same
// boolean-to-integer widening idiom with the condition inverted, so it
// belongs next to the rule spec names explicitly rather than waiting to be
// rediscovered by a separate pass.
func InstructionCombine() Pass {
	return &blockPass{name: "instr-combine", fn: instrCombineBlock}
}

func instrCombineBlock(fn *ir.Function, b *ir.Block) bool {
	changed := false
	var out []*ir.Node
	for _, n := range b.Nodes {
		if n.Op != ir.OpSelect {
			out = append(out, n)
			continue
		}
		cond, ifTrue, ifFalse := n.Ins[0], n.Ins[1], n.Ins[2]
		if !ifTrue.IsConst || !ifFalse.IsConst {
			out = append(out, n)
			continue
		}
		switch {
		case ifTrue.Const.Int64() == 1 && ifFalse.Const.IsZero():
			out = append(out, ir.NewCast(*n.Out, cond.Type(), cond))
			changed = true
		case ifTrue.Const.IsZero() && ifFalse.Const.Int64() == 1:
			notVar := ir.Variable{Name: b.FreshVarName() + "$not", Typ: cond.Type()}
			notNode := ir.NewBinary(ir.OpXor, notVar, cond, ir.OperandFromConst(ir.ConstInt(cond.Type(), 1)))
			out = append(out, notNode, ir.NewCast(*n.Out, cond.Type(), ir.OperandFromVar(notVar)))
			changed = true
		default:
			out = append(out, n)
		}
	}
	b.Nodes = out
	return changed
}
