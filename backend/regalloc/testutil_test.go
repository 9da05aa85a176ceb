package regalloc

import "github.com/loomgen/loomgen/backend"

const (
	fakeR0 backend.RealReg = iota
	fakeR1
	fakeF0
)

// fakeRegisterFile is a minimal two-GPR, one-XMM register file, small enough
// to force a spill with three simultaneously live integer values.
type fakeRegisterFile struct{}

func (fakeRegisterFile) Registers(class backend.RegClass) []backend.Register {
	switch class {
	case backend.RegClassGPR:
		return []backend.Register{
			{Real: fakeR0, Name: "r0", BitSize: 64, Class: backend.RegClassGPR},
			{Real: fakeR1, Name: "r1", BitSize: 64, Class: backend.RegClassGPR},
		}
	case backend.RegClassFloat:
		return []backend.Register{
			{Real: fakeF0, Name: "f0", BitSize: 64, Class: backend.RegClassFloat},
		}
	default:
		return nil
	}
}

func (fakeRegisterFile) Lookup(r backend.RealReg) backend.Register {
	for _, class := range []backend.RegClass{backend.RegClassGPR, backend.RegClassFloat} {
		for _, reg := range (fakeRegisterFile{}).Registers(class) {
			if reg.Real == r {
				return reg
			}
		}
	}
	return backend.Register{}
}

func (fakeRegisterFile) CalleeSaved() []backend.Register { return nil }

// fakeABI mirrors a small SystemV-shaped convention: two int arg registers,
// one float arg register, no shadow space.
type fakeABI struct{}

func (fakeABI) Name() string                   { return "fake" }
func (fakeABI) IntArgRegs() []backend.RealReg   { return []backend.RealReg{fakeR0, fakeR1} }
func (fakeABI) FloatArgRegs() []backend.RealReg { return []backend.RealReg{fakeF0} }
func (fakeABI) IntReturnReg() backend.RealReg   { return fakeR0 }
func (fakeABI) FloatReturnReg() backend.RealReg { return fakeF0 }
func (fakeABI) ShadowSpaceBytes() int           { return 0 }
func (fakeABI) StackArgBaseOffset() int         { return 16 }
func (fakeABI) CalleeSaved() []backend.RealReg  { return nil }
func (fakeABI) ClearRAXForVariadicCall() bool   { return false }
