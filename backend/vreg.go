package backend

import "math"

// VReg represents a register assigned to an IR value during instruction
// selection. It may or may not already carry a RealReg: before allocation
// VReg.RealReg() is invalid; after allocation replaces it with a concrete
// physical register or a stack slot (tracked separately, see StackSlot).
type VReg uint64

// VRegID is the lower 32 bits of VReg: the pure identifier, without RealReg
// info.
type VRegID uint32

const (
	vRegIDInvalid VRegID = math.MaxUint32
	// VRegInvalid is the zero-value-free sentinel for "no register".
	VRegInvalid VReg = VReg(vRegIDInvalid)
)

// RealReg returns the RealReg bound to this VReg, or RealRegInvalid if it
// has not been allocated yet.
func (v VReg) RealReg() RealReg {
	return RealReg(v >> 32)
}

// WithRealReg returns the updated VReg carrying r as its physical register.
func (v VReg) WithRealReg(r RealReg) VReg {
	return VReg(r)<<32 | v&0xffffffff
}

// ID returns the VRegID of this VReg.
func (v VReg) ID() VRegID { return VRegID(v & 0xffffffff) }

// Valid reports whether this VReg names a real virtual register.
func (v VReg) Valid() bool { return v.ID() != vRegIDInvalid }

// IsAllocated reports whether this VReg has been bound to a RealReg.
func (v VReg) IsAllocated() bool { return v.RealReg() != RealRegInvalid }

// NewVReg builds an (as yet unallocated) VReg from an id.
func NewVReg(id VRegID) VReg { return VReg(RealRegInvalid)<<32 | VReg(id) }

// StackSlot identifies a spill or alloca slot on the current frame, as a
// byte offset from the frame pointer (negative, growing down).
type StackSlot int32
