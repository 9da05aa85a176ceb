package amd64

import "github.com/loomgen/loomgen/backend"

type systemV struct{}

// SystemV is the ELF/macOS x86-64 calling convention: integer args in RDI,
// RSI, RDX, RCX, R8, R9; float args in XMM0..XMM7; stack args right-to-left
// at [rsp+8]; return int in RAX, float in XMM0; callee-saved RBX, RBP, RSP,
// R12-R15.
var SystemV backend.ABI = systemV{}

func (systemV) Name() string                   { return "systemv" }
func (systemV) IntArgRegs() []backend.RealReg   { return []backend.RealReg{RDI, RSI, RDX, RCX, R8, R9} }
func (systemV) FloatArgRegs() []backend.RealReg {
	return []backend.RealReg{XMM0, XMM1, XMM2, XMM3, XMM4, XMM5, XMM6, XMM7}
}
func (systemV) IntReturnReg() backend.RealReg        { return RAX }
func (systemV) FloatReturnReg() backend.RealReg      { return XMM0 }
func (systemV) ShadowSpaceBytes() int                { return 0 }
func (systemV) StackArgBaseOffset() int              { return 8 }
func (systemV) CalleeSaved() []backend.RealReg       { return []backend.RealReg{RBX, RBP, RSP, R12, R13, R14, R15} }
func (systemV) ClearRAXForVariadicCall() bool        { return true }

type win64 struct{}

// Win64 is the Windows x64 fast-call convention: integer args in RCX, RDX,
// R8, R9; float args in XMM0..XMM3; a 32-byte shadow space reserved by the
// caller at [rsp]..[rsp+24]; stack args at [rsp+32+8k]; callee-saved
// additionally XMM6-XMM15.
var Win64 backend.ABI = win64{}

func (win64) Name() string                 { return "win64" }
func (win64) IntArgRegs() []backend.RealReg { return []backend.RealReg{RCX, RDX, R8, R9} }
func (win64) FloatArgRegs() []backend.RealReg {
	return []backend.RealReg{XMM0, XMM1, XMM2, XMM3}
}
func (win64) IntReturnReg() backend.RealReg   { return RAX }
func (win64) FloatReturnReg() backend.RealReg { return XMM0 }
func (win64) ShadowSpaceBytes() int           { return 32 }
func (win64) StackArgBaseOffset() int         { return 32 + 8 }
func (win64) CalleeSaved() []backend.RealReg {
	return []backend.RealReg{RBX, RBP, RSP, RSI, RDI, R12, R13, R14, R15,
		XMM6, XMM7, XMM8, XMM9, XMM10, XMM11, XMM12, XMM13, XMM14, XMM15}
}
func (win64) ClearRAXForVariadicCall() bool { return true }
