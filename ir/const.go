package ir

import (
	"math"
	"strconv"
)

// Const is a typed immediate: a type descriptor together with an immediate
// value. Integers are stored as their raw bit pattern truncated to the
// type's width (not sign-extended in Bits); floats are stored as their
// IEEE-754 bit pattern.
type Const struct {
	Typ  Type
	Bits uint64
}

// ConstInt builds an integer constant, truncating v to the type's width.
func ConstInt(t Type, v int64) Const {
	bits := uint64(v)
	switch t.ByteSize() {
	case 1:
		bits &= 0xff
	case 2:
		bits &= 0xffff
	case 4:
		bits &= 0xffffffff
	}
	return Const{Typ: t, Bits: bits}
}

// ConstFloat32 builds an f32 constant from a float32 value.
func ConstFloat32(v float32) Const {
	return Const{Typ: F32(), Bits: uint64(math.Float32bits(v))}
}

// ConstFloat64 builds an f64 constant.
func ConstFloat64(v float64) Const {
	return Const{Typ: F64(), Bits: math.Float64bits(v)}
}

// AsType returns a type-only view of this constant, discarding the value.
// Round-tripping via WithValue recovers the original Const.
func (c Const) AsType() Type { return c.Typ }

// WithValue returns a new Const of the same type carrying bits instead.
func (c Const) WithValue(bits uint64) Const { return Const{Typ: c.Typ, Bits: bits} }

// Int64 interprets Bits as a (possibly sign-extended) signed 64-bit integer
// according to the constant's type.
func (c Const) Int64() int64 {
	switch c.Typ.ByteSize() {
	case 1:
		if c.Typ.Signed() {
			return int64(int8(c.Bits))
		}
		return int64(uint8(c.Bits))
	case 2:
		if c.Typ.Signed() {
			return int64(int16(c.Bits))
		}
		return int64(uint16(c.Bits))
	case 4:
		if c.Typ.Signed() {
			return int64(int32(c.Bits))
		}
		return int64(uint32(c.Bits))
	default:
		return int64(c.Bits)
	}
}

// Float64 interprets Bits as an IEEE-754 float of the constant's width.
func (c Const) Float64() float64 {
	if c.Typ.Kind == TypeF32 {
		return float64(math.Float32frombits(uint32(c.Bits)))
	}
	return math.Float64frombits(c.Bits)
}

// IsZero reports whether the constant's bit pattern is the all-zero value.
func (c Const) IsZero() bool { return c.Bits == 0 }

func (c Const) String() string {
	if c.Typ.Float() {
		return strconv.FormatFloat(c.Float64(), 'g', -1, 64)
	}
	return strconv.FormatInt(c.Int64(), 10)
}
