package amd64

import (
	"encoding/binary"
	"fmt"
)

// EncodingVariantUnavailableError is returned when no table entry matches
// an instruction's mnemonic/operand-shape combination.
type EncodingVariantUnavailableError struct {
	Mnemonic string
	Shape    string
}

func (e *EncodingVariantUnavailableError) Error() string {
	return fmt.Sprintf("error: no encoding for %s with operand shape %s", e.Mnemonic, e.Shape)
}

// Encode assembles instrs into a single byte stream, returning every
// relocation needed to resolve unresolved block/symbol targets.
func Encode(instrs []Instruction) ([]byte, []Relocation, error) {
	var buf []byte
	var relocs []Relocation
	for _, ins := range instrs {
		if err := encodeOne(&buf, &relocs, ins); err != nil {
			return nil, nil, err
		}
	}
	return buf, relocs, nil
}

func shapeOf(ops []Operand) string {
	s := ""
	for _, o := range ops {
		switch o.Kind {
		case OperandReg:
			s += "r"
		case OperandImm:
			s += "i"
		case OperandMem:
			s += "m"
		case OperandLinkDestination, OperandBlockLinkDestination:
			s += "l"
		}
	}
	if s == "" {
		return "none"
	}
	return s
}

func encodeOne(buf *[]byte, relocs *[]Relocation, ins Instruction) error {
	switch ins.Mnemonic {
	case "ret":
		*buf = append(*buf, 0xC3)
		return nil
	case "cqo":
		*buf = append(*buf, 0x48, 0x99)
		return nil
	case "push":
		return encodePushPop(buf, ins, 0x50)
	case "pop":
		return encodePushPop(buf, ins, 0x58)
	case "neg":
		return encodeUnaryGroup3(buf, ins, 3)
	case "mul":
		return encodeUnaryGroup3(buf, ins, 4)
	case "div":
		return encodeUnaryGroup3(buf, ins, 6)
	case "idiv":
		return encodeUnaryGroup3(buf, ins, 7)
	case "jmp":
		return encodeJump(buf, relocs, ins, 0xE9, "")
	case "je", "jz":
		return encodeJump(buf, relocs, ins, 0x0F84, "")
	case "jne", "jnz":
		return encodeJump(buf, relocs, ins, 0x0F85, "")
	case "jl":
		return encodeJump(buf, relocs, ins, 0x0F8C, "")
	case "jle":
		return encodeJump(buf, relocs, ins, 0x0F8E, "")
	case "jg":
		return encodeJump(buf, relocs, ins, 0x0F8F, "")
	case "jge":
		return encodeJump(buf, relocs, ins, 0x0F8D, "")
	case "call":
		return encodeJump(buf, relocs, ins, 0xE8, "")
	case "sete":
		return encodeSetcc(buf, ins, 0x94)
	case "setne":
		return encodeSetcc(buf, ins, 0x95)
	case "setl":
		return encodeSetcc(buf, ins, 0x9C)
	case "setle":
		return encodeSetcc(buf, ins, 0x9E)
	case "setg":
		return encodeSetcc(buf, ins, 0x9F)
	case "setge":
		return encodeSetcc(buf, ins, 0x9D)
	case "mov":
		return encodeMov(buf, relocs, ins)
	case "movzx":
		return encodeMovxx(buf, ins, 0xB6)
	case "movsx":
		return encodeMovxx(buf, ins, 0xBE)
	case "lea":
		return encodeLea(buf, relocs, ins)
	case "add":
		return encodeArith(buf, ins, 0x00, 0)
	case "or":
		return encodeArith(buf, ins, 0x08, 1)
	case "and":
		return encodeArith(buf, ins, 0x20, 4)
	case "sub":
		return encodeArith(buf, ins, 0x28, 5)
	case "xor":
		return encodeArith(buf, ins, 0x30, 6)
	case "cmp":
		return encodeArith(buf, ins, 0x38, 7)
	case "imul":
		return encodeImul(buf, ins)
	case "cmovnz":
		return encodeCmovnz(buf, ins)
	default:
		return &EncodingVariantUnavailableError{Mnemonic: ins.Mnemonic, Shape: shapeOf(ins.Operands)}
	}
}

// rex computes the REX prefix byte (0x40 | W<<3 | R<<2 | X<<1 | B), or 0 (no
// prefix byte emitted) when none of W/R/X/B are set and no operand needs one
// for addressability (8-bit regs 4-7 as SPL/BPL/SIL/DIL require a bare REX;
// callers pass forceREX for that case).
func rex(w, r, x, b, forceREX bool) (byte, bool) {
	if !w && !r && !x && !b && !forceREX {
		return 0, false
	}
	v := byte(0x40)
	if w {
		v |= 1 << 3
	}
	if r {
		v |= 1 << 2
	}
	if x {
		v |= 1 << 1
	}
	if b {
		v |= 1
	}
	return v, true
}

func modrm(mod, reg, rm byte) byte { return mod<<6 | (reg&7)<<3 | (rm & 7) }
func sibByte(scale, index, base byte) byte { return scale<<6 | (index&7)<<3 | (base & 7) }

func scaleBits(scale int8) byte {
	switch scale {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	default:
		return 0
	}
}

// encodeRM appends the ModR/M (+SIB +disp) bytes addressing rm (a register
// or memory operand) with the given reg field, returning whether REX.X/B are
// required.
func encodeRM(buf *[]byte, reg byte, rm Operand, relocs *[]Relocation) (needX, needB bool) {
	if rm.Kind == OperandReg {
		*buf = append(*buf, modrm(3, reg, rm.Reg.Enc))
		return false, rm.Reg.Enc >= 8
	}
	m := rm.Mem
	if m.RIP {
		*buf = append(*buf, modrm(0, reg, 5))
		if m.Symbol != "" {
			*relocs = append(*relocs, Relocation{Offset: len(*buf), Target: m.Symbol, Kind: PC32})
		}
		var d [4]byte
		binary.LittleEndian.PutUint32(d[:], uint32(m.Disp))
		*buf = append(*buf, d[:]...)
		return false, false
	}
	needsSIB := m.HasIndex || !m.HasBase || (m.HasBase && m.Base.Enc&7 == 4)
	var mod byte
	baseEnc := byte(5)
	if m.HasBase {
		baseEnc = m.Base.Enc & 7
	}
	switch {
	case !m.HasBase:
		// SIB base=5 with mod=0 is a bare disp32; a plain rm=5 would be
		// RIP-relative instead.
		mod = 0
	case m.Disp == 0 && baseEnc != 5:
		mod = 0
	case m.Disp >= -128 && m.Disp <= 127:
		mod = 1
	default:
		mod = 2
	}
	if needsSIB {
		*buf = append(*buf, modrm(mod, reg, 4))
		idx := byte(4)
		if m.HasIndex {
			idx = m.Index.Enc & 7
		}
		base := byte(5)
		if m.HasBase {
			base = baseEnc
		}
		*buf = append(*buf, sibByte(scaleBits(m.Scale), idx, base))
		needX = m.HasIndex && m.Index.Enc >= 8
		needB = m.HasBase && m.Base.Enc >= 8
	} else {
		*buf = append(*buf, modrm(mod, reg, baseEnc))
		needB = m.HasBase && m.Base.Enc >= 8
	}
	switch mod {
	case 1:
		*buf = append(*buf, byte(int8(m.Disp)))
	case 2, 0:
		if mod == 2 || !m.HasBase {
			var d [4]byte
			binary.LittleEndian.PutUint32(d[:], uint32(m.Disp))
			*buf = append(*buf, d[:]...)
		}
	}
	return needX, needB
}

func immBytes(v int64, width int) []byte {
	b := make([]byte, width)
	switch width {
	case 1:
		b[0] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
	return b
}

func widthPrefix(buf *[]byte, width int) {
	if width == 16 {
		*buf = append(*buf, 0x66)
	}
}

func encodePushPop(buf *[]byte, ins Instruction, base byte) error {
	if len(ins.Operands) != 1 || ins.Operands[0].Kind != OperandReg {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	r := ins.Operands[0].Reg
	if rx, ok := rex(false, false, false, r.Enc >= 8, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, base+(r.Enc&7))
	return nil
}

func encodeUnaryGroup3(buf *[]byte, ins Instruction, ext byte) error {
	if len(ins.Operands) != 1 {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	op := ins.Operands[0]
	w := op.Kind == OperandReg && op.Reg.Width == 64
	needX, needB := false, false
	if op.Kind == OperandReg {
		needB = op.Reg.Enc >= 8
	} else {
		needX = op.Mem.HasIndex && op.Mem.Index.Enc >= 8
		needB = op.Mem.HasBase && op.Mem.Base.Enc >= 8
	}
	if rx, ok := rex(w, false, needX, needB, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0xF7)
	var relocs []Relocation
	encodeRM(buf, ext, op, &relocs)
	return nil
}

func encodeJump(buf *[]byte, relocs *[]Relocation, ins Instruction, opcode int, _ string) error {
	if len(ins.Operands) != 1 {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	op := ins.Operands[0]
	if opcode > 0xFF {
		*buf = append(*buf, 0x0F, byte(opcode&0xFF))
	} else {
		*buf = append(*buf, byte(opcode))
	}
	target := ""
	addend := op.Addend
	if op.Kind == OperandLinkDestination {
		target = op.Symbol
	} else if op.Kind == OperandBlockLinkDestination {
		target = op.Label
	} else {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	*relocs = append(*relocs, Relocation{Offset: len(*buf), Target: target, Addend: addend, Kind: PC32})
	*buf = append(*buf, 0, 0, 0, 0)
	return nil
}

func encodeSetcc(buf *[]byte, ins Instruction, opcode byte) error {
	if len(ins.Operands) != 1 {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	op := ins.Operands[0]
	forceREX := op.Kind == OperandReg && op.Reg.Enc >= 4 && op.Reg.Enc < 8 && op.Reg.Width == 8
	needB := op.Kind == OperandReg && op.Reg.Enc >= 8
	if rx, ok := rex(false, false, false, needB, forceREX); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0x0F, opcode)
	var relocs []Relocation
	encodeRM(buf, 0, op, &relocs)
	return nil
}

func encodeMov(buf *[]byte, relocs *[]Relocation, ins Instruction) error {
	if len(ins.Operands) != 2 {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	width := operandWidth(dst)
	widthPrefix(buf, width)
	switch {
	case dst.Kind == OperandReg && src.Kind == OperandImm:
		w := width == 64
		if rx, ok := rex(w, false, false, dst.Reg.Enc >= 8, false); ok {
			*buf = append(*buf, rx)
		}
		op := byte(0xB8 + dst.Reg.Enc&7)
		if width == 8 {
			op = byte(0xB0 + dst.Reg.Enc&7)
		}
		*buf = append(*buf, op)
		iw := width / 8
		if width == 64 {
			iw = 8
		}
		*buf = append(*buf, immBytes(src.Imm, iw)...)
		return nil
	case dst.Kind == OperandReg || dst.Kind == OperandMem:
		// mov r/m, r  (0x89) when src is a register; mov r, r/m (0x8B) when
		// dst is a register and src is memory.
		if src.Kind == OperandReg {
			w := width == 64
			needX, needB := false, false
			if dst.Kind == OperandMem {
				needX = dst.Mem.HasIndex && dst.Mem.Index.Enc >= 8
				needB = dst.Mem.HasBase && dst.Mem.Base.Enc >= 8
			} else {
				needB = dst.Reg.Enc >= 8
			}
			if rx, ok := rex(w, src.Reg.Enc >= 8, needX, needB, false); ok {
				*buf = append(*buf, rx)
			}
			op := byte(0x89)
			if width == 8 {
				op = 0x88
			}
			*buf = append(*buf, op)
			encodeRM(buf, src.Reg.Enc, dst, relocs)
			return nil
		}
		if dst.Kind == OperandReg && src.Kind == OperandMem {
			w := width == 64
			needX := src.Mem.HasIndex && src.Mem.Index.Enc >= 8
			needB := src.Mem.HasBase && src.Mem.Base.Enc >= 8
			if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
				*buf = append(*buf, rx)
			}
			op := byte(0x8B)
			if width == 8 {
				op = 0x8A
			}
			*buf = append(*buf, op)
			encodeRM(buf, dst.Reg.Enc, src, relocs)
			return nil
		}
	}
	return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
}

func encodeMovxx(buf *[]byte, ins Instruction, opcode byte) error {
	if len(ins.Operands) != 2 || ins.Operands[0].Kind != OperandReg {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	w := dst.Reg.Width == 64
	needB := dst.Reg.Enc >= 8
	needX := false
	if src.Kind == OperandMem {
		needX = src.Mem.HasIndex && src.Mem.Index.Enc >= 8
		needB = needB || (src.Mem.HasBase && src.Mem.Base.Enc >= 8)
	} else if src.Kind == OperandReg {
		needB = needB || src.Reg.Enc >= 8
	}
	if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0x0F, opcode)
	var relocs []Relocation
	encodeRM(buf, dst.Reg.Enc, src, &relocs)
	return nil
}

func encodeLea(buf *[]byte, relocs *[]Relocation, ins Instruction) error {
	if len(ins.Operands) != 2 || ins.Operands[0].Kind != OperandReg || ins.Operands[1].Kind != OperandMem {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	w := dst.Reg.Width == 64
	needX := src.Mem.HasIndex && src.Mem.Index.Enc >= 8
	needB := src.Mem.HasBase && src.Mem.Base.Enc >= 8
	if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0x8D)
	encodeRM(buf, dst.Reg.Enc, src, relocs)
	return nil
}

func encodeArith(buf *[]byte, ins Instruction, baseOpcode byte, groupExt byte) error {
	if len(ins.Operands) != 2 {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	width := operandWidth(dst)
	widthPrefix(buf, width)
	if src.Kind == OperandImm {
		w := width == 64
		needX, needB := false, false
		if dst.Kind == OperandMem {
			needX = dst.Mem.HasIndex && dst.Mem.Index.Enc >= 8
			needB = dst.Mem.HasBase && dst.Mem.Base.Enc >= 8
		} else {
			needB = dst.Reg.Enc >= 8
		}
		if rx, ok := rex(w, false, needX, needB, false); ok {
			*buf = append(*buf, rx)
		}
		op := byte(0x81)
		iw := 4
		if width == 8 {
			op = 0x80
			iw = 1
		} else if width == 16 {
			iw = 2
		}
		if src.Imm >= -128 && src.Imm <= 127 && width != 8 {
			op = 0x83
			iw = 1
		}
		*buf = append(*buf, op)
		var relocs []Relocation
		encodeRM(buf, groupExt, dst, &relocs)
		*buf = append(*buf, immBytes(src.Imm, iw)...)
		return nil
	}
	if src.Kind == OperandReg {
		w := width == 64
		needX, needB := false, false
		if dst.Kind == OperandMem {
			needX = dst.Mem.HasIndex && dst.Mem.Index.Enc >= 8
			needB = dst.Mem.HasBase && dst.Mem.Base.Enc >= 8
		} else {
			needB = dst.Reg.Enc >= 8
		}
		if rx, ok := rex(w, src.Reg.Enc >= 8, needX, needB, false); ok {
			*buf = append(*buf, rx)
		}
		op := baseOpcode | 0x01
		if width == 8 {
			op = baseOpcode
		}
		*buf = append(*buf, op)
		var relocs []Relocation
		encodeRM(buf, src.Reg.Enc, dst, &relocs)
		return nil
	}
	if dst.Kind == OperandReg && src.Kind == OperandMem {
		w := width == 64
		needX := src.Mem.HasIndex && src.Mem.Index.Enc >= 8
		needB := src.Mem.HasBase && src.Mem.Base.Enc >= 8
		if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
			*buf = append(*buf, rx)
		}
		op := baseOpcode | 0x03
		*buf = append(*buf, op)
		var relocs []Relocation
		encodeRM(buf, dst.Reg.Enc, src, &relocs)
		return nil
	}
	return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
}

func encodeImul(buf *[]byte, ins Instruction) error {
	if len(ins.Operands) != 2 || ins.Operands[0].Kind != OperandReg {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	w := dst.Reg.Width == 64
	needX, needB := false, false
	if src.Kind == OperandMem {
		needX = src.Mem.HasIndex && src.Mem.Index.Enc >= 8
		needB = src.Mem.HasBase && src.Mem.Base.Enc >= 8
	} else if src.Kind == OperandReg {
		needB = src.Reg.Enc >= 8
	}
	if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0x0F, 0xAF)
	var relocs []Relocation
	encodeRM(buf, dst.Reg.Enc, src, &relocs)
	return nil
}

// encodeCmovnz emits `cmovnz dst, src` (0x0F 0x45 /r): dst is loaded from src
// only when ZF==0, left unchanged otherwise.
func encodeCmovnz(buf *[]byte, ins Instruction) error {
	if len(ins.Operands) != 2 || ins.Operands[0].Kind != OperandReg {
		return &EncodingVariantUnavailableError{ins.Mnemonic, shapeOf(ins.Operands)}
	}
	dst, src := ins.Operands[0], ins.Operands[1]
	w := dst.Reg.Width == 64
	needX, needB := false, false
	if src.Kind == OperandMem {
		needX = src.Mem.HasIndex && src.Mem.Index.Enc >= 8
		needB = src.Mem.HasBase && src.Mem.Base.Enc >= 8
	} else if src.Kind == OperandReg {
		needB = src.Reg.Enc >= 8
	}
	if rx, ok := rex(w, dst.Reg.Enc >= 8, needX, needB, false); ok {
		*buf = append(*buf, rx)
	}
	*buf = append(*buf, 0x0F, 0x45)
	var relocs []Relocation
	encodeRM(buf, dst.Reg.Enc, src, &relocs)
	return nil
}

func operandWidth(o Operand) int {
	if o.Kind == OperandReg {
		return o.Reg.Width
	}
	if o.Kind == OperandMem {
		if o.Mem.Width != 0 {
			return o.Mem.Width
		}
	}
	return 64
}
