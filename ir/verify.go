package ir

import (
	"fmt"

	"github.com/loomgen/loomgen/internal/obslog"
)

// Verify runs every per-node check against the owning function, returning
// the first error encountered. Non-fatal issues (e.g. an unreachable block)
// are logged as warnings rather than returned.
func (f *Function) Verify() error {
	defined := map[string]bool{}
	for _, arg := range f.Sig.Args {
		defined[arg.Name] = true
	}

	reachable := f.reachableBlocks()
	for _, b := range f.Blocks {
		if !reachable[b.Name] && b != f.Blocks[0] {
			obslog.L().Warn("unreachable block", obslog.Str("function", f.Name), obslog.Str("block", b.Name))
		}
		if err := f.verifyBlockShape(b); err != nil {
			return err
		}
		for _, n := range b.Nodes {
			if n.Out != nil {
				if defined[n.Out.Name] {
					return newVerifyErr(ErrDuplicateVariableDef, f.Name, b.Name, n.Out.Name)
				}
				defined[n.Out.Name] = true
			}
			if err := f.verifyNode(b, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// verifyBlockShape checks invariants (i) terminator is last, (ii) phis
// precede all non-phi nodes.
func (f *Function) verifyBlockShape(b *Block) error {
	sawNonPhi := false
	for i, n := range b.Nodes {
		if n.Op == OpPhi {
			if sawNonPhi {
				return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, "phi after non-phi node")
			}
			continue
		}
		sawNonPhi = true
		if n.IsTerminator() && i != len(b.Nodes)-1 {
			return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, "terminator is not the last node")
		}
	}
	return nil
}

func (f *Function) verifyNode(b *Block, n *Node) error {
	switch n.Op {
	case OpReturn:
		if len(n.Ins) == 0 {
			if !f.Sig.Ret.Equal(Void()) {
				return newVerifyErr(ErrRetTyMismatch, f.Name, b.Name, "missing return value for non-void function")
			}
			return nil
		}
		actual := n.Ins[0].Type()
		if !actual.Equal(f.Sig.Ret) {
			return newVerifyErr(ErrRetTyMismatch, f.Name, b.Name,
				fmt.Sprintf("actual=%s declared=%s", actual, f.Sig.Ret))
		}
	case OpAdd, OpSub, OpMul, OpDiv, OpRem, OpShl, OpShr, OpAnd, OpOr, OpXor:
		a, c := n.Ins[0].Type(), n.Ins[1].Type()
		if !a.Equal(c) {
			return newVerifyErr(ErrBinOpTyMismatch, f.Name, b.Name, fmt.Sprintf("%s vs %s", a, c))
		}
	case OpBr:
		if n.Target == nil {
			return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, "nil branch target")
		}
		if _, ok := f.Block(n.Target.Name); !ok {
			return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, n.Target.Name)
		}
	case OpBrCond:
		for _, t := range []*Block{n.Target, n.ElseTarget} {
			if t == nil {
				return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, "nil branch target")
			}
			if _, ok := f.Block(t.Name); !ok {
				return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, t.Name)
			}
		}
	case OpSwitch:
		if _, ok := f.Block(n.Target.Name); !ok {
			return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, n.Target.Name)
		}
		for _, c := range n.SwitchCases {
			if _, ok := f.Block(c.Target.Name); !ok {
				return newVerifyErr(ErrDanglingBranchTarget, f.Name, b.Name, c.Target.Name)
			}
		}
	case OpCall:
		if err := f.verifyCall(b, n); err != nil {
			return err
		}
	}
	return nil
}

// verifyCall checks argument count/type for direct (non-intrinsic) calls
// against the callee's signature looked up in the owning module, when one
// is available via the calleeSig resolver Module.Add installs with
// SetCalleeResolver.
func (f *Function) verifyCall(b *Block, n *Node) error {
	if n.Intrinsic || f.calleeSig == nil {
		return nil
	}
	sig, ok := f.calleeSig(n.Callee)
	if !ok {
		return nil // extern/unknown callee: nothing further to check here.
	}
	if !sig.Variadic && len(n.Ins) > len(sig.Args) {
		return newVerifyErr(ErrTooManyArgs, f.Name, b.Name,
			fmt.Sprintf("declared=%d supplied=%d", len(sig.Args), len(n.Ins)))
	}
	for i, a := range sig.Args {
		if i >= len(n.Ins) {
			break
		}
		if !n.Ins[i].Type().Equal(a.Typ) {
			return newVerifyErr(ErrInvalidArgTy, f.Name, b.Name,
				fmt.Sprintf("index=%d expected=%s actual=%s", i, a.Typ, n.Ins[i].Type()))
		}
	}
	return nil
}

// reachableBlocks returns the set of block names reachable from the entry
// block by following Successors(), used to flag (but not reject) dead code.
func (f *Function) reachableBlocks() map[string]bool {
	seen := map[string]bool{}
	if len(f.Blocks) == 0 {
		return seen
	}
	var walk func(*Block)
	walk = func(b *Block) {
		if seen[b.Name] {
			return
		}
		seen[b.Name] = true
		for _, s := range b.Successors() {
			walk(s)
		}
	}
	walk(f.Blocks[0])
	return seen
}
