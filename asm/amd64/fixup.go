package amd64

import "encoding/binary"

// SiteKind identifies the shape of an already-encoded call/jump/lea site
// PatchAbsolute knows how to rewrite.
type SiteKind byte

const (
	SiteCallRel32 SiteKind = iota
	SiteJmpRel32
	SiteLeaRIP
)

const (
	lenCallRel32 = 5  // E8 + rel32
	lenJmpRel32  = 5  // E9 + rel32
	lenLeaRIP    = 7  // REX.W 8D modrm(00,reg,101) + disp32
	lenMovImm64  = 10 // REX.W B8+r + imm64
	lenIndirect  = 2  // FF D0 (call rax) or FF E0 (jmp rax)
	lenLeaRaxRax = 3  // REX.W 8D 00 (lea rax, [rax])
)

// PatchAbsolute rewrites the instruction at code[offset:] — a call rel32, a
// jmp rel32, or a RIP-relative lea — into a mov rax, imm64 followed by an
// indirect call/jump through RAX (or a lea rax, [rax] for the RIP-lea case),
// for absolute targets beyond 32-bit relative reach.
//
// The result is returned as a new byte slice (the rewrite is length-growing
// for every site kind here, so it cannot be done truly in place); delta is
// the byte-count increase the caller must add to every relocation Offset
// recorded at or after offset+originalLen.
func PatchAbsolute(code []byte, offset int, kind SiteKind, absAddr uint64) (out []byte, delta int) {
	origLen, replacement := rewriteSite(kind, absAddr)
	out = make([]byte, 0, len(code)+len(replacement)-origLen)
	out = append(out, code[:offset]...)
	out = append(out, replacement...)
	out = append(out, code[offset+origLen:]...)
	return out, len(replacement) - origLen
}

func rewriteSite(kind SiteKind, absAddr uint64) (origLen int, replacement []byte) {
	movRax := movRaxImm64(absAddr)
	switch kind {
	case SiteCallRel32:
		return lenCallRel32, append(append([]byte{}, movRax...), 0xFF, 0xD0) // call rax
	case SiteJmpRel32:
		return lenJmpRel32, append(append([]byte{}, movRax...), 0xFF, 0xE0) // jmp rax
	case SiteLeaRIP:
		return lenLeaRIP, append(append([]byte{}, movRax...), 0x48, 0x8D, 0x00) // lea rax, [rax]
	default:
		return 0, nil
	}
}

func movRaxImm64(v uint64) []byte {
	b := make([]byte, 2, lenMovImm64)
	b[0] = 0x48 // REX.W
	b[1] = 0xB8 // mov rax, imm64 (reg field 0 == RAX)
	var imm [8]byte
	binary.LittleEndian.PutUint64(imm[:], v)
	return append(b, imm[:]...)
}

// AdjustRelocations shifts every relocation whose Offset is at or past
// cutoff by delta, matching the byte-count change PatchAbsolute introduced.
func AdjustRelocations(relocs []Relocation, cutoff, delta int) {
	if delta == 0 {
		return
	}
	for i := range relocs {
		if relocs[i].Offset >= cutoff {
			relocs[i].Offset += delta
		}
	}
}
