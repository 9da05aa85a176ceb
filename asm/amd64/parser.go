package amd64

import (
	"strconv"
	"strings"
)

// regByName inverts the gprNN tables; not a general disassembler-grade
// table, just enough to round-trip what Print produces.
func regByName(name string) (Reg, bool) {
	tables := []struct {
		width int
		names [16]string
	}{
		{64, gpr64}, {32, gpr32}, {16, gpr16}, {8, gpr8},
	}
	for _, t := range tables {
		for enc, n := range t.names {
			if n == name {
				return Reg{Enc: byte(enc), Width: t.width}, true
			}
		}
	}
	if strings.HasPrefix(name, "xmm") {
		n, err := strconv.Atoi(name[3:])
		if err == nil {
			return Reg{Enc: byte(n), Width: 128, IsXMM: true}, true
		}
	}
	return Reg{}, false
}

// Parse is a minimal round-trip parser for the Intel-syntax subset Print
// emits: "mnemonic", "mnemonic op", or "mnemonic op1, op2", with operands
// being bare registers, decimal immediates, <symbol>/<label> link
// destinations, or a single bracketed memory expression
// "[base + index*scale + disp]" (every term optional except at least one).
func Parse(text string) (Instruction, error) {
	text = strings.TrimSpace(text)
	sp := strings.IndexByte(text, ' ')
	if sp < 0 {
		return Instruction{Mnemonic: text}, nil
	}
	mnemonic := text[:sp]
	rest := strings.TrimSpace(text[sp+1:])

	var operandTexts []string
	depth := 0
	cur := strings.Builder{}
	for _, r := range rest {
		switch r {
		case '[':
			depth++
			cur.WriteRune(r)
		case ']':
			depth--
			cur.WriteRune(r)
		case ',':
			if depth == 0 {
				operandTexts = append(operandTexts, strings.TrimSpace(cur.String()))
				cur.Reset()
				continue
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		operandTexts = append(operandTexts, strings.TrimSpace(cur.String()))
	}

	ins := Instruction{Mnemonic: mnemonic}
	var dstWidth int
	for i, ot := range operandTexts {
		op, err := parseOperand(ot, dstWidth)
		if err != nil {
			return Instruction{}, err
		}
		if i == 0 && op.Kind == OperandReg {
			dstWidth = op.Reg.Width
		}
		ins.Operands = append(ins.Operands, op)
	}
	return ins, nil
}

func parseOperand(s string, dstWidth int) (Operand, error) {
	switch {
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return parseMem(s[1 : len(s)-1])
	case strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">"):
		name := s[1 : len(s)-1]
		return LinkDestination(name, 0), nil
	default:
		if r, ok := regByName(s); ok {
			return Operand{Kind: OperandReg, Reg: r}, nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Operand{}, &EncodingVariantUnavailableError{Mnemonic: "parse", Shape: s}
		}
		w := dstWidth / 8
		if w == 0 {
			w = 4
		}
		return ImmOp(v, w), nil
	}
}

func parseMem(body string) (Operand, error) {
	if strings.HasPrefix(body, "rip") {
		sym := strings.TrimSpace(strings.TrimPrefix(body, "rip"))
		sym = strings.TrimPrefix(sym, "+")
		return MemOp(Mem{RIP: true, Symbol: strings.TrimSpace(sym)}), nil
	}
	m := Mem{Scale: 1}
	terms := strings.Split(body, "+")
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, "*") {
			parts := strings.SplitN(t, "*", 2)
			r, ok := regByName(strings.TrimSpace(parts[0]))
			if !ok {
				return Operand{}, &EncodingVariantUnavailableError{Mnemonic: "parse", Shape: body}
			}
			scale, _ := strconv.Atoi(strings.TrimSpace(parts[1]))
			m.HasIndex = true
			m.Index = r
			m.Scale = int8(scale)
			continue
		}
		if r, ok := regByName(t); ok {
			m.HasBase = true
			m.Base = r
			continue
		}
		disp, err := strconv.Atoi(strings.ReplaceAll(t, " ", ""))
		if err != nil {
			return Operand{}, &EncodingVariantUnavailableError{Mnemonic: "parse", Shape: body}
		}
		m.Disp += int32(disp)
	}
	return MemOp(m), nil
}
