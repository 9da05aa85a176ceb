package regalloc

import (
	"sort"

	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/ir"
	"github.com/loomgen/loomgen/internal/obslog"
)

// ErrRegisterExhausted is the allocator's "fail loudly" diagnostic (the
// core's contract for allocator/assembler errors: abort the current
// function rather than silently mis-compile).
type ErrRegisterExhausted struct{ VReg backend.VRegID }

func (e *ErrRegisterExhausted) Error() string {
	return "error: register allocation exhausted for a value with no remaining spill candidate"
}

// Scope snapshots {variable location} at one MI-emission point, kept for
// post-allocation diagnostics and cross-block debug-reference resolution.
type Scope struct {
	Index     int
	Locations map[backend.VRegID]backend.MIOperand
}

// Result is everything downstream lowering needs once allocation completes:
// every MI operand is now MIOperandReal or MIOperandStack, never
// MIOperandVReg.
type Result struct {
	FrameSize    int
	CalleeSaved  []backend.RealReg
	NeedsEpilog  bool
	Scopes       []Scope
	ArgLocations []ArgLocation
}

// Allocate runs a greedy color/spill loop over instrs (one MI list per
// block, keyed by block name, iterated in order), resolving every virtual
// operand to a concrete register or stack slot. Move-related virtual
// registers are not coalesced: every VReg-to-VReg move survives allocation.
func Allocate(order []string, instrs map[string][]*backend.MachineInstr, sig ir.Signature, rf backend.RegisterFile, abi backend.ABI, argProc ArgProcessor, mem MemoryProcessor, ow OverwriteProcessor) (*Result, error) {
	res := &Result{ArgLocations: argProc.PlaceArgs(sig, abi)}
	resolveAllocas(order, instrs, mem)

	// maxRounds bounds the spill/retry loop: a closed-interval liveness model
	// has no notion of temporarily evicting an already-colored value mid
	// range, so a handful of values whose naive intervals nest without ever
	// being required in registers at the same instruction can exceed the
	// register file even though no single instruction truly needs them all
	// at once. colorOnce has no backtracking to recover from that, so it
	// would keep reselecting the same spill candidate forever. One round per
	// instruction is far more headroom than any real function needs (spill
	// rounds are bounded by distinct interference conflicts, not program
	// length), so hitting the cap means the function is genuinely
	// unallocatable on this register file, not merely slow to converge.
	maxRounds := 1
	for _, list := range instrs {
		maxRounds += len(list)
	}

	for round := 0; ; round++ {
		prog := Flatten(order, instrs)
		ranges := ComputeLiveness(prog)

		coloring, spillSet, err := colorOnce(prog, ranges, rf)
		if err != nil {
			return nil, err
		}
		if len(spillSet) == 0 {
			applyColoring(prog, coloring, mem, ow)
			res.FrameSize = mem.FrameSize()
			res.CalleeSaved = usedCalleeSaved(coloring, rf)
			res.NeedsEpilog = res.FrameSize > 0 || len(res.CalleeSaved) > 0
			res.Scopes = snapshotScopes(prog, coloring)
			return res, nil
		}
		if round >= maxRounds {
			var stuck backend.VRegID
			for id := range spillSet {
				stuck = id
				break
			}
			return nil, &ErrRegisterExhausted{VReg: stuck}
		}
		spill(order, instrs, spillSet, mem)
		obslog.Debugf("regalloc: spilled %d virtual register(s), retrying", len(spillSet))
	}
}

// spillCost scores id by (uses*defs)/live_range_len: a value touched often
// relative to how long it occupies a register is expensive to spill (every
// touch becomes a reload/store), while one with few touches spread over a
// long range is cheap. Ranking candidates by this value ascending picks the
// cheapest victims first.
func spillCost(id backend.VRegID, rng *LiveRange, useDefCounts map[backend.VRegID][2]int) float64 {
	ud := useDefCounts[id]
	length := rng.End - rng.Start + 1
	if length < 1 {
		length = 1
	}
	return float64(ud[0]*ud[1]) / float64(length)
}

// countUsesDefs tallies, per VReg, how many times it is used and how many
// times it is defined across the flattened program: the (uses*defs) term of
// the spill-cost ranking.
func countUsesDefs(prog *Program) map[backend.VRegID][2]int {
	counts := map[backend.VRegID][2]int{}
	for i := 0; i < prog.Len(); i++ {
		mi := prog.At(i)
		for _, u := range mi.Uses() {
			c := counts[u.ID()]
			c[0]++
			counts[u.ID()] = c
		}
		if d, ok := mi.Def(); ok {
			c := counts[d.ID()]
			c[1]++
			counts[d.ID()] = c
		}
	}
	return counts
}

// colorOnce builds the interference graph from ranges and greedily colors in
// ascending VRegID order, trying registers from highest Score first; it does
// not coalesce move-related pairs. When id finds no free color, it evicts the
// cheapest-to-spill already-colored neighbor in its favor (ranked by
// spillCost ascending) rather than giving up on id outright; only when no
// neighbor is cheaper to spill than id itself does id join spillSet.
func colorOnce(prog *Program, ranges map[backend.VRegID]*LiveRange, rf backend.RegisterFile) (map[backend.VRegID]backend.RealReg, map[backend.VRegID]bool, error) {
	ids := make([]backend.VRegID, 0, len(ranges))
	for id := range ranges {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	useDefCounts := countUsesDefs(prog)
	cost := make(map[backend.VRegID]float64, len(ids))
	for _, id := range ids {
		cost[id] = spillCost(id, ranges[id], useDefCounts)
	}

	interferes := func(a, b backend.VRegID) bool {
		if a == b {
			return false
		}
		return ranges[a].overlaps(*ranges[b])
	}

	gprs := rf.Registers(backend.RegClassGPR)
	sort.Slice(gprs, func(i, j int) bool { return gprs[i].Score() > gprs[j].Score() })

	coloring := map[backend.VRegID]backend.RealReg{}
	spillSet := map[backend.VRegID]bool{}

	calleeSaved := func(r backend.RealReg) bool { return rf.Lookup(r).CalleeSaved }
	soleCalleeSavedUser := func(reg backend.RealReg, excluding backend.VRegID) bool {
		if !calleeSaved(reg) {
			return false
		}
		for other, c := range coloring {
			if other != excluding && c == reg {
				return false
			}
		}
		return true
	}

	for _, id := range ids {
		used := map[backend.RealReg]bool{}
		for _, other := range ids {
			if c, ok := coloring[other]; ok && interferes(id, other) {
				used[c] = true
			}
		}
		assigned := false
		for _, g := range gprs {
			if !used[g.Real] {
				coloring[id] = g.Real
				assigned = true
				break
			}
		}
		if assigned {
			continue
		}

		var victim backend.VRegID
		haveVictim := false
		for _, other := range ids {
			c, ok := coloring[other]
			if !ok || !interferes(id, other) || cost[other] >= cost[id] {
				continue
			}
			switch {
			case !haveVictim:
				victim, haveVictim = other, true
			case cost[other] < cost[victim]:
				victim = other
			case cost[other] == cost[victim]:
				// Tie: prefer not evicting the candidate that is the sole
				// occupant of an otherwise-unused callee-saved register.
				if soleCalleeSavedUser(coloring[victim], victim) && !soleCalleeSavedUser(c, other) {
					victim = other
				}
			}
		}
		if haveVictim {
			reg := coloring[victim]
			delete(coloring, victim)
			spillSet[victim] = true
			coloring[id] = reg
			continue
		}
		spillSet[id] = true
	}
	return coloring, spillSet, nil
}

func applyColoring(prog *Program, coloring map[backend.VRegID]backend.RealReg, mem MemoryProcessor, ow OverwriteProcessor) {
	resolve := func(o *backend.MIOperand) {
		if o == nil || o.Kind != backend.MIOperandVReg {
			return
		}
		if real, ok := coloring[o.VR.ID()]; ok {
			*o = backend.RealOperand(real, o.Typ)
		}
	}
	for i := 0; i < prog.Len(); i++ {
		mi := prog.At(i)
		resolve(mi.Result)
		for j := range mi.Args {
			resolve(&mi.Args[j])
		}
		if ow != nil && ow.MustOverwrite(mi) && mi.Result != nil && len(mi.Args) > 0 {
			mi.Args[0] = *mi.Result
		}
	}
}

func usedCalleeSaved(coloring map[backend.VRegID]backend.RealReg, rf backend.RegisterFile) []backend.RealReg {
	seen := map[backend.RealReg]bool{}
	var out []backend.RealReg
	for _, r := range coloring {
		reg := rf.Lookup(r)
		if reg.CalleeSaved && !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func snapshotScopes(prog *Program, coloring map[backend.VRegID]backend.RealReg) []Scope {
	var scopes []Scope
	for i := 0; i < prog.Len(); i++ {
		locs := map[backend.VRegID]backend.MIOperand{}
		for id, r := range coloring {
			locs[id] = backend.RealOperand(r, ir.Type{})
		}
		scopes = append(scopes, Scope{Index: i, Locations: locs})
	}
	return scopes
}

// resolveAllocas turns every Alloca-shaped MILoadAddr (Args = [size
// immediate]) into a frame-pointer-relative stack slot reservation, ahead
// of coloring: the slot is a property of the frame, not of register
// pressure, so it is settled once regardless of how many spill rounds
// follow.
func resolveAllocas(order []string, instrs map[string][]*backend.MachineInstr, mem MemoryProcessor) {
	for _, b := range order {
		for _, m := range instrs[b] {
			if m.Op != backend.MILoadAddr || len(m.Args) != 1 || m.Args[0].Kind != backend.MIOperandImm {
				continue
			}
			size := int(m.Args[0].Imm)
			align := size
			if align > 8 || align == 0 {
				align = 8
			}
			slot := mem.Alloc(size, align)
			m.Args = []backend.MIOperand{backend.StackOperand(slot, m.Typ)}
		}
	}
}

// spill rewrites every use/def of each VReg in spillSet into an explicit
// load-before-use / store-after-def around a freshly allocated stack slot.
// Which ids landed in spillSet was already decided by colorOnce's
// spill-cost ranking; spill itself just materializes that set, id order
// here carries no further meaning.
//
// Each load/store site gets its own freshly minted VReg rather than reusing
// the spilled id: reusing it would leave every reload still touching the
// same VRegID as the original def, so ComputeLiveness would re-merge them
// into one wide range on the next round and colorOnce would spill exactly
// the same set again, forever. Minting a fresh id per site collapses each
// reload to a one-instruction live range that trivially colors.
func spill(order []string, instrs map[string][]*backend.MachineInstr, spillSet map[backend.VRegID]bool, mem MemoryProcessor) {
	slots := map[backend.VRegID]backend.StackSlot{}
	for id := range spillSet {
		slots[id] = mem.Alloc(8, 8)
	}
	next := nextFreeVRegID(order, instrs)
	fresh := func() backend.VReg {
		v := backend.NewVReg(next)
		next++
		return v
	}
	for _, b := range order {
		list := instrs[b]
		var out []*backend.MachineInstr
		for _, mi := range list {
			for j := range mi.Args {
				a := mi.Args[j]
				if a.Kind == backend.MIOperandVReg && spillSet[a.VR.ID()] {
					slot := slots[a.VR.ID()]
					tmp := backend.VRegOperand(fresh(), a.Typ)
					out = append(out, &backend.MachineInstr{
						Op:     backend.MILoad,
						Result: &tmp,
						Args:   []backend.MIOperand{backend.StackOperand(slot, a.Typ)},
						Typ:    a.Typ,
					})
					mi.Args[j] = tmp
				}
			}
			out = append(out, mi)
			if d, ok := mi.Def(); ok && spillSet[d.ID()] {
				slot := slots[d.ID()]
				out = append(out, &backend.MachineInstr{
					Op:   backend.MIStore,
					Args: []backend.MIOperand{backend.StackOperand(slot, mi.Typ), *mi.Result},
					Typ:  mi.Typ,
				})
			}
		}
		instrs[b] = out
	}
}

// nextFreeVRegID scans every operand in the program for the highest VRegID
// in use and returns one past it, so spill's freshly minted ids never
// collide with an existing virtual register (including ones minted by an
// earlier spill round).
func nextFreeVRegID(order []string, instrs map[string][]*backend.MachineInstr) backend.VRegID {
	var max backend.VRegID
	seen := false
	bump := func(id backend.VRegID) {
		if !seen || id > max {
			max, seen = id, true
		}
	}
	for _, b := range order {
		for _, mi := range instrs[b] {
			if mi.Result != nil && mi.Result.Kind == backend.MIOperandVReg {
				bump(mi.Result.VR.ID())
			}
			for _, a := range mi.Args {
				if a.Kind == backend.MIOperandVReg {
					bump(a.VR.ID())
				}
			}
		}
	}
	if !seen {
		return 0
	}
	return max + 1
}
