package regalloc

import (
	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/ir"
)

// ArgLocation is where one signature argument lives on entry: either a
// physical register or an offset from the stack pointer on function entry
// (ABI.StackArgBaseOffset for the first stack argument, 8 bytes apart).
type ArgLocation struct {
	InReg  bool
	Reg    backend.RealReg
	Offset int32
}

// ArgProcessor binds a function's argument variables to convention-defined
// locations, per the target ABI's register/stack layout recipe.
type ArgProcessor interface {
	PlaceArgs(sig ir.Signature, abi backend.ABI) []ArgLocation
}

// MemoryProcessor allocates frame-pointer-relative stack slots for Alloca
// requests and for spilled virtual registers, aligned to the requested
// byte alignment and never overlapping two simultaneously-live slots.
type MemoryProcessor interface {
	// Alloc reserves size bytes aligned to align, returning the new slot's
	// offset (negative, frame-pointer relative).
	Alloc(size, align int) backend.StackSlot
	// FrameSize returns the total frame size allocated so far, rounded up
	// to the architecture's stack alignment.
	FrameSize() int
}

// OverwriteProcessor reports two-address constraints: some MI mnemonics
// (x86-64's op dst, src1, src2 expansion collapses to op dst, src2 with
// dst==src1 already moved in) require their result and first input to
// share a single location after allocation.
type OverwriteProcessor interface {
	// MustOverwrite reports whether mi's result must be assigned the same
	// location as mi.Args[0].
	MustOverwrite(mi *backend.MachineInstr) bool
}

// defaultMemoryProcessor is the architecture-agnostic frame-pointer-relative
// bump allocator every target's Machine wires in via NewMemoryProcessor
// unless it needs a bespoke layout.
type defaultMemoryProcessor struct {
	cursor int
	align  int
}

// NewMemoryProcessor returns a bump-down stack allocator aligned to
// frameAlign (the architecture's natural stack alignment, e.g. 16 on
// x86-64 SystemV).
func NewMemoryProcessor(frameAlign int) MemoryProcessor {
	return &defaultMemoryProcessor{align: frameAlign}
}

func (m *defaultMemoryProcessor) Alloc(size, align int) backend.StackSlot {
	if align < 1 {
		align = 1
	}
	m.cursor += size
	if rem := m.cursor % align; rem != 0 {
		m.cursor += align - rem
	}
	return backend.StackSlot(-m.cursor)
}

func (m *defaultMemoryProcessor) FrameSize() int {
	if m.align < 1 {
		return m.cursor
	}
	if rem := m.cursor % m.align; rem != 0 {
		return m.cursor + (m.align - rem)
	}
	return m.cursor
}

// genericArgProcessor classifies arguments purely off the ABI's register
// lists: the same int/float, first-N-registers-then-stack recipe applies to
// every convention this tree implements (SystemV, Win64, the WASM basic-C
// ABI), so no per-architecture override has been needed yet.
type genericArgProcessor struct{}

// NewArgProcessor returns the architecture-agnostic argument classifier.
func NewArgProcessor() ArgProcessor { return genericArgProcessor{} }

func (genericArgProcessor) PlaceArgs(sig ir.Signature, abi backend.ABI) []ArgLocation {
	intRegs, floatRegs := abi.IntArgRegs(), abi.FloatArgRegs()
	intIdx, floatIdx := 0, 0
	offset := int32(abi.StackArgBaseOffset())
	var locs []ArgLocation
	for _, a := range sig.Args {
		if a.Typ.Float() {
			if floatIdx < len(floatRegs) {
				locs = append(locs, ArgLocation{InReg: true, Reg: floatRegs[floatIdx]})
				floatIdx++
				continue
			}
		} else if intIdx < len(intRegs) {
			locs = append(locs, ArgLocation{InReg: true, Reg: intRegs[intIdx]})
			intIdx++
			continue
		}
		locs = append(locs, ArgLocation{Offset: offset})
		offset += 8
	}
	return locs
}

// noOverwrite reports every MI as free of two-address constraints: every
// lowering in this tree routes arithmetic through a scratch register or a
// stack-machine local rather than an x86-style dst==src1 encoding, so no
// target has needed a real MustOverwrite rule yet.
type noOverwrite struct{}

// NewOverwriteProcessor returns the always-false two-address reporter.
func NewOverwriteProcessor() OverwriteProcessor { return noOverwrite{} }

func (noOverwrite) MustOverwrite(*backend.MachineInstr) bool { return false }
