// Package loomgen is the root entry point: it ties IR verification,
// per-target policy enforcement, optimization, instruction selection,
// register allocation, and final code emission into one Compile call.
package loomgen

import (
	"fmt"

	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/backend/regalloc"
	"github.com/loomgen/loomgen/dag"
	"github.com/loomgen/loomgen/internal/obslog"
	"github.com/loomgen/loomgen/ir"
	"github.com/loomgen/loomgen/pass"
	"github.com/loomgen/loomgen/target"
)

// Driver is the shape a front-end (a CLI, a REPL, an embedder) supplies to
// drive one compilation: a module ready to verify and the triple to target.
// The core only needs this much; anything that builds an *ir.Module and
// names a target.Triple satisfies it.
type Driver interface {
	Module() *ir.Module
	Triple() target.Triple
}

// FunctionResult is one function's compiled section: its machine code, the
// relocation sites within it, and the stack frame size the allocator
// settled on (0 for a leaf function with no spills/callee-saves).
type FunctionResult struct {
	Name        string
	Code        []byte
	Relocations []target.Relocation
	FrameSize   int
}

// CompileResult is everything one Compile call produced, in the module's
// deterministic function-insertion order.
type CompileResult struct {
	Triple    target.Triple
	Functions []FunctionResult
	Consts    map[string]ir.ModuleConst
}

// Options bundles backend.CompileOptions with the two module-level knobs
// the pipeline itself owns: an optional purity allow-list for
// pass.UnusedCallRemoval, and the auto_max_optimize iteration cap.
type Options struct {
	backend.CompileOptions

	// PureFunctions names leaf, side-effect-free callees; supplying it adds
	// pass.UnusedCallRemoval to the default optimization pipeline. Nil (the
	// zero value) just skips that one pass, since this IR has no real
	// effect analysis to derive purity from automatically.
	PureFunctions map[string]bool

	// MaxOptIterations bounds pass.AutoMaxOptimize's fixed-point loop. <= 0
	// uses the package default.
	MaxOptIterations int
}

// Compile runs a module through the full pipeline for one target: Verify,
// per-architecture whitelist/blacklist policy, optimization, then per
// function DAG construction, instruction selection, register allocation,
// and final lowering/encoding.
func Compile(mod *ir.Module, t target.Triple, opts Options) (*CompileResult, error) {
	if err := mod.Verify(); err != nil {
		return nil, err
	}

	desc, err := target.InitializeAllTargets(t)
	if err != nil {
		return nil, err
	}

	for _, fn := range mod.Functions() {
		if err := desc.Policy.CheckFunction(fn); err != nil {
			return nil, err
		}
	}

	optimize(mod, opts)

	isVariadic := func(name string) bool {
		callee, ok := mod.Function(name)
		return ok && callee.Sig.Variadic
	}

	res := &CompileResult{Triple: t, Consts: mod.Consts}
	for _, fn := range mod.Functions() {
		fr, err := compileFunction(fn, desc, isVariadic, opts)
		if err != nil {
			return nil, err
		}
		res.Functions = append(res.Functions, *fr)
	}
	return res, nil
}

// optimize runs the standard pipeline (constant folding, two-pass dead-node
// elimination, instruction combining, dead-block elimination, and
// optionally unused-call removal) to a fixed point, or until
// opts.MaxOptIterations rounds have run.
func optimize(mod *ir.Module, opts Options) {
	mgr := pass.NewManager().
		PushBack(pass.ConstEval()).
		PushBack(pass.DeadNodeElim()).
		PushBack(pass.InstructionCombine()).
		PushBack(pass.DeadBlockElim())
	if opts.PureFunctions != nil {
		mgr.PushBack(pass.UnusedCallRemoval(opts.PureFunctions))
	}

	iterations := opts.MaxOptIterations
	if iterations <= 0 {
		iterations = 8
	}
	pass.AutoMaxOptimize(mgr, mod, iterations)
}

// compileFunction lowers one already-verified, already-optimized function
// through DAG construction, selection, allocation, and codegen.
func compileFunction(fn *ir.Function, desc *target.Descriptor, isVariadic func(string) bool, opts Options) (*FunctionResult, error) {
	dagFn := dag.Build(fn, desc.ArchInfo, isVariadic)

	alloc := backend.NewAllocator()
	tmps := mintTmps(dagFn, desc.Machine, alloc)
	instrs := desc.Machine.Lower(dagFn, alloc, tmps)

	if err := desc.Policy.CheckMI(fn.Name, dagFn.BlockOrder, instrs); err != nil {
		return nil, err
	}

	result, err := regalloc.Allocate(
		dagFn.BlockOrder, instrs, fn.Sig,
		desc.Machine.RegisterFile(), desc.Machine.ABI(),
		regalloc.NewArgProcessor(),
		regalloc.NewMemoryProcessor(desc.FrameAlign),
		regalloc.NewOverwriteProcessor(),
	)
	if err != nil {
		// The allocator has already exhausted its spill loop by the time
		// this returns; there is no recovery path left short of aborting
		// the compile, matching the allocator's own "fail loudly" contract.
		panic(fmt.Sprintf("loomgen: %s: %v", fn.Name, err))
	}

	code, relocs := desc.Codegen(dagFn.BlockOrder, instrs, result, opts.CompileOptions)
	obslog.Debugf(fmt.Sprintf("loomgen: compiled %s: %d bytes, frame=%d", fn.Name, len(code), result.FrameSize))
	return &FunctionResult{Name: fn.Name, Code: code, Relocations: relocs, FrameSize: result.FrameSize}, nil
}

// mintTmps precomputes every temporary a selector declares via
// Machine.RequiredTmps across fn's whole node set, minting one fresh VReg
// per declared slot up front so the tmps callback Machine.Lower receives is
// a pure, order-independent lookup.
func mintTmps(fn *dag.Function, m backend.Machine, alloc *backend.Allocator) func(*dag.Node) []backend.VReg {
	cache := map[*dag.Node][]backend.VReg{}
	for _, b := range fn.BlockOrder {
		for _, n := range fn.Blocks[b] {
			infos := m.RequiredTmps(n)
			if len(infos) == 0 {
				continue
			}
			vregs := make([]backend.VReg, len(infos))
			for i := range infos {
				vregs[i] = alloc.Fresh()
			}
			cache[n] = vregs
		}
	}
	return func(n *dag.Node) []backend.VReg { return cache[n] }
}
