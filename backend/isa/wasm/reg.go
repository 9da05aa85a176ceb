// Package wasm is the WebAssembly Machine: a thinner backend than amd64's,
// since a WASM function body has no physical registers to color — only an
// unbounded pool of locals. The same backend.Machine/backend.ABI/regalloc
// contract still applies: "registers" here are simply local-slot indices,
// so the register allocator never spills on this target (the pool below is
// sized generously rather than truly unbounded, matching how a conforming
// implementation would size its local pool per function from a static
// upper bound on its virtual-register count).
package wasm

import "github.com/loomgen/loomgen/backend"

// maxLocals bounds the local-slot pool; a real implementation sizes this
// per function from the selector's virtual-register high-water mark.
const maxLocals = 256

type registerFile struct {
	ints   []backend.Register
	floats []backend.Register
}

// NewRegisterFile returns the WASM "register" file: maxLocals integer local
// slots and maxLocals float local slots, in two disjoint RealReg ranges.
func NewRegisterFile() backend.RegisterFile {
	rf := &registerFile{}
	for i := 0; i < maxLocals; i++ {
		rf.ints = append(rf.ints, backend.Register{Real: backend.RealReg(i), Name: "local", BitSize: 64, Class: backend.RegClassGPR})
	}
	for i := 0; i < maxLocals; i++ {
		rf.floats = append(rf.floats, backend.Register{Real: backend.RealReg(maxLocals + i), Name: "local", BitSize: 64, Class: backend.RegClassFloat})
	}
	return rf
}

func (rf *registerFile) Registers(class backend.RegClass) []backend.Register {
	if class == backend.RegClassFloat || class == backend.RegClassVector {
		return append([]backend.Register(nil), rf.floats...)
	}
	// flagsLocal, the last integer local, is held back for the encoder.
	return append([]backend.Register(nil), rf.ints[:flagsLocal]...)
}

func (rf *registerFile) Lookup(r backend.RealReg) backend.Register {
	if int(r) < maxLocals {
		return rf.ints[r]
	}
	if int(r) < 2*maxLocals {
		return rf.floats[int(r)-maxLocals]
	}
	return backend.Register{Real: backend.RealRegInvalid}
}

// CalleeSaved is always empty: WASM locals are function-scoped, so there is
// nothing for a callee to preserve across a call.
func (rf *registerFile) CalleeSaved() []backend.Register { return nil }

// IsFloatLocal reports whether a local index falls in the float pool.
func IsFloatLocal(r backend.RealReg) bool { return int(r) >= maxLocals }

// LocalIndex returns the WASM local index this RealReg encodes.
func LocalIndex(r backend.RealReg) uint32 {
	if IsFloatLocal(r) {
		return uint32(r) - maxLocals
	}
	return uint32(r)
}
