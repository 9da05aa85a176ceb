package wasm

import (
	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/ir"
)

// Opcode constants for the subset of the WASM instruction set this encoder
// emits. Names follow the WebAssembly spec's own mnemonics.
const (
	opBlock    = 0x02
	opLoop     = 0x03
	opEnd      = 0x0B
	opBr       = 0x0C
	opBrIf     = 0x0D
	opReturn   = 0x0F
	opCall     = 0x10
	opLocalGet = 0x20
	opLocalSet = 0x21
	opI32Const = 0x41
	opI64Const = 0x42

	opI32Eqz = 0x45
	opI32Eq  = 0x46
	opI32Ne  = 0x47
	opI32LtS = 0x48
	opI32GtS = 0x4A
	opI32LeS = 0x4C
	opI32GeS = 0x4E

	opI64Eq  = 0x51
	opI64Ne  = 0x52
	opI64LtS = 0x53
	opI64GtS = 0x55
	opI64LeS = 0x57
	opI64GeS = 0x59

	opI32Load  = 0x28
	opI64Load  = 0x29
	opI32Store = 0x36
	opI64Store = 0x37

	opI32Add = 0x6A
	opI32Sub = 0x6B
	opI32Mul = 0x6C
	opI32And = 0x71
	opI32Or  = 0x72
	opI32Xor = 0x73

	opI64Add = 0x7C
	opI64Sub = 0x7D
	opI64Mul = 0x7E
	opI64And = 0x83
	opI64Or  = 0x84
	opI64Xor = 0x85

	opSelect = 0x1B
)

// flagsLocal is the reserved local that carries an MICmp's boolean result
// between MICmp and the MISetCC/MIJumpIf that consumes it; WASM is a stack
// machine with no flags register, so MICmp/MISetCC (a flags-machine idiom
// inherited from the generic MI set shared with amd64) are bridged through
// one dedicated local instead.
const flagsLocal = backend.RealReg(maxLocals - 1)

func leb128u(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

func leb128s(v int64) []byte {
	var out []byte
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		out = append(out, b)
	}
	return out
}

func is64(t ir.Type) bool { return t.ByteSize() > 4 }

// Encode lowers one function's fully allocated MI stream into a WASM
// function body: local.get/local.set around each operation, in straight
// instruction order. Structured control flow (block/loop/if nesting) is not
// reconstructed from the CFG here — br/br_if/call/return are emitted as
// single-instruction placeholders with a depth/target resolved by the
// caller's block layout, which is sufficient for straight-line and
// single-branch bodies but not a general relooper.
func Encode(order []string, instrs map[string][]*backend.MachineInstr) []byte {
	var out []byte
	for _, b := range order {
		for _, m := range instrs[b] {
			out = append(out, encodeOne(m)...)
		}
	}
	return out
}

func get(r backend.RealReg) []byte {
	return append([]byte{opLocalGet}, leb128u(uint64(LocalIndex(r)))...)
}

func set(r backend.RealReg) []byte {
	return append([]byte{opLocalSet}, leb128u(uint64(LocalIndex(r)))...)
}

func operandBytes(o backend.MIOperand) []byte {
	switch o.Kind {
	case backend.MIOperandReal:
		return get(o.Real)
	case backend.MIOperandImm:
		if is64(o.Typ) {
			return append([]byte{opI64Const}, leb128s(o.Imm)...)
		}
		return append([]byte{opI32Const}, leb128s(o.Imm)...)
	default:
		return nil
	}
}

func encodeOne(m *backend.MachineInstr) []byte {
	var out []byte
	switch m.Op {
	case backend.MIMove, backend.MIFMove:
		out = append(out, operandBytes(m.Args[0])...)
		out = append(out, set(m.Result.Real)...)

	case backend.MIAdd, backend.MISub, backend.MIMul, backend.MIAnd, backend.MIOr, backend.MIXor:
		out = append(out, operandBytes(m.Args[0])...)
		out = append(out, operandBytes(m.Args[1])...)
		out = append(out, arithOpcode(m.Op, m.Typ))
		out = append(out, set(m.Result.Real)...)

	case backend.MICmp:
		out = append(out, operandBytes(m.Args[0])...)
		out = append(out, operandBytes(m.Args[1])...)
		out = append(out, cmpOpcode(m.Cond, m.Args[0].Typ))
		out = append(out, set(flagsLocal)...)

	case backend.MISetCC:
		out = append(out, get(flagsLocal)...)
		out = append(out, set(m.Result.Real)...)

	case backend.MIJumpIf:
		out = append(out, get(flagsLocal)...)
		out = append(out, opBrIf)
		out = append(out, leb128u(0)...)

	case backend.MIJump:
		out = append(out, opBr)
		out = append(out, leb128u(0)...)

	case backend.MICall:
		out = append(out, opCall)
		out = append(out, leb128u(0)...)

	case backend.MIReturn:
		out = append(out, opReturn)

	case backend.MILoad:
		out = append(out, operandBytes(m.Args[0])...)
		if is64(m.Typ) {
			out = append(out, opI64Load, 0x03, 0x00)
		} else {
			out = append(out, opI32Load, 0x02, 0x00)
		}
		out = append(out, set(m.Result.Real)...)

	case backend.MIStore:
		out = append(out, operandBytes(m.Args[0])...)
		out = append(out, operandBytes(m.Args[1])...)
		if is64(m.Typ) {
			out = append(out, opI64Store, 0x03, 0x00)
		} else {
			out = append(out, opI32Store, 0x02, 0x00)
		}

	case backend.MICMovNZ:
		// select(cond, a, b) landed here as dst=b; cmp cond,0; cmovnz
		// dst,a. WASM's native "select" pops c, val2, val1 (val1 pushed
		// first/bottom) and returns val1 if c!=0 else val2, so the push
		// order must be a (val1), dst/b (val2), cond (c) to reproduce
		// select(cond,a,b)'s semantics.
		out = append(out, operandBytes(m.Args[0])...) // a (val1)
		out = append(out, get(m.Result.Real)...)       // b, currently in dst (val2)
		out = append(out, get(flagsLocal)...)          // cond (c)
		out = append(out, opSelect)
		out = append(out, set(m.Result.Real)...)

	default:
	}
	return out
}

func arithOpcode(op backend.MIOp, t ir.Type) byte {
	if is64(t) {
		switch op {
		case backend.MIAdd:
			return opI64Add
		case backend.MISub:
			return opI64Sub
		case backend.MIMul:
			return opI64Mul
		case backend.MIAnd:
			return opI64And
		case backend.MIOr:
			return opI64Or
		default:
			return opI64Xor
		}
	}
	switch op {
	case backend.MIAdd:
		return opI32Add
	case backend.MISub:
		return opI32Sub
	case backend.MIMul:
		return opI32Mul
	case backend.MIAnd:
		return opI32And
	case backend.MIOr:
		return opI32Or
	default:
		return opI32Xor
	}
}

func cmpOpcode(c ir.CmpMode, t ir.Type) byte {
	if is64(t) {
		switch c {
		case ir.CmpEq:
			return opI64Eq
		case ir.CmpNe:
			return opI64Ne
		case ir.CmpLt:
			return opI64LtS
		case ir.CmpGt:
			return opI64GtS
		case ir.CmpLe:
			return opI64LeS
		default:
			return opI64GeS
		}
	}
	switch c {
	case ir.CmpEq:
		return opI32Eq
	case ir.CmpNe:
		return opI32Ne
	case ir.CmpLt:
		return opI32LtS
	case ir.CmpGt:
		return opI32GtS
	case ir.CmpLe:
		return opI32LeS
	default:
		return opI32GeS
	}
}
