package wasm

import "github.com/loomgen/loomgen/backend"

// basicC is the WASM "basic C ABI": parameters and the return value are
// ordinary locals, with no shadow space or stack-argument spilling (the
// multi-value and reference-type proposals are out of scope here).
type basicC struct{}

// ABI is the WASM calling convention: backend.Machine implementations select
// this directly, since WASM has no vendor-specific register convention the
// way x86-64 has SystemV vs. fastcall.
var ABI backend.ABI = basicC{}

const maxWasmArgs = 32

func (basicC) Name() string { return "wasm-basic-c" }

func (basicC) IntArgRegs() []backend.RealReg {
	regs := make([]backend.RealReg, maxWasmArgs)
	for i := range regs {
		regs[i] = backend.RealReg(i)
	}
	return regs
}

func (basicC) FloatArgRegs() []backend.RealReg {
	regs := make([]backend.RealReg, maxWasmArgs)
	for i := range regs {
		regs[i] = backend.RealReg(maxLocals + i)
	}
	return regs
}

// IntReturnReg and FloatReturnReg reserve the slot one past the last
// argument slot in each pool as the function's return-value local.
func (basicC) IntReturnReg() backend.RealReg   { return backend.RealReg(maxWasmArgs) }
func (basicC) FloatReturnReg() backend.RealReg { return backend.RealReg(maxLocals + maxWasmArgs) }

func (basicC) ShadowSpaceBytes() int    { return 0 }
func (basicC) StackArgBaseOffset() int  { return 0 }
func (basicC) CalleeSaved() []backend.RealReg { return nil }

// ClearRAXForVariadicCall is false: WASM has no varargs calling convention
// in this basic-C ABI (variadic functions are not expressible without the
// reference-types/GC proposals), so there is nothing to clear.
func (basicC) ClearRAXForVariadicCall() bool { return false }
