package amd64

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/loomgen/loomgen/asm/amd64"
	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/backend/regalloc"
	"github.com/loomgen/loomgen/ir"
)

// TestLowerFunction_IdentityReturnNeedsNoPrologOrEpilog exercises the
// smallest possible function: move an allocated argument into the return
// register and ret. With zero frame size and no callee-saved registers used,
// NeedsEpilog is false and LowerFunction must not synthesize any
// push/sub/add/pop scaffolding around it.
func TestLowerFunction_IdentityReturnNeedsNoPrologOrEpilog(t *testing.T) {
	rax := backend.RealOperand(RAX, ir.I64())
	instrs := map[string][]*backend.MachineInstr{
		"entry": {
			{Op: backend.MIMove, Result: &rax, Args: []backend.MIOperand{backend.RealOperand(RDI, ir.I64())}, Typ: ir.I64()},
			{Op: backend.MIReturn, Typ: ir.I64()},
		},
	}
	res := &regalloc.Result{NeedsEpilog: false}

	lowered := LowerFunction([]string{"entry"}, instrs, res, backend.CompileOptions{})
	list := lowered.Instructions["entry"]
	require.Len(t, list, 2)
	require.Equal(t, "mov", list[0].Mnemonic)
	require.Equal(t, "ret", list[1].Mnemonic)
}

// TestLowerFunction_EmitsPrologEpilogWhenFrameNeeded exercises a function
// that reserves 16 bytes of frame and uses one callee-saved GPR (rbx),
// verifying the push/mov-rbp/sub prolog precedes the body and the
// add/pop-rbp/pop-rbx epilog is inserted immediately before ret (not at the
// very end of the block).
func TestLowerFunction_EmitsPrologEpilogWhenFrameNeeded(t *testing.T) {
	instrs := map[string][]*backend.MachineInstr{
		"entry": {
			{Op: backend.MIReturn, Typ: ir.Void()},
		},
	}
	res := &regalloc.Result{NeedsEpilog: true, FrameSize: 16, CalleeSaved: []backend.RealReg{RBX}}

	lowered := LowerFunction([]string{"entry"}, instrs, res, backend.CompileOptions{})
	list := lowered.Instructions["entry"]

	require.Equal(t, "push", list[0].Mnemonic) // push rbx
	require.Equal(t, "push", list[1].Mnemonic) // push rbp
	require.Equal(t, "mov", list[2].Mnemonic)  // mov rbp, rsp
	require.Equal(t, "sub", list[3].Mnemonic)  // sub rsp, 16
	require.Equal(t, "add", list[4].Mnemonic)  // epilog: add rsp, 16
	require.Equal(t, "pop", list[5].Mnemonic)  // pop rbp
	require.Equal(t, "pop", list[6].Mnemonic)  // pop rbx
	require.Equal(t, "ret", list[7].Mnemonic)
}

func TestLowerFunction_AllocaStoreLoadRoundTripsThroughStackSlot(t *testing.T) {
	rax := backend.RealOperand(RAX, ir.I64())
	loadAddrResult := backend.RealOperand(RAX, ir.Ptr())
	instrs := map[string][]*backend.MachineInstr{
		"entry": {
			{Op: backend.MILoadAddr, Result: &loadAddrResult, Args: []backend.MIOperand{backend.StackOperand(-8, ir.Ptr())}, Typ: ir.Ptr()},
			{Op: backend.MIStore, Args: []backend.MIOperand{backend.RealOperand(RAX, ir.Ptr()), backend.RealOperand(RDI, ir.I64())}, Typ: ir.I64()},
			{Op: backend.MILoad, Result: &rax, Args: []backend.MIOperand{backend.RealOperand(RAX, ir.Ptr())}, Typ: ir.I64()},
			{Op: backend.MIReturn, Typ: ir.I64()},
		},
	}
	res := &regalloc.Result{NeedsEpilog: true, FrameSize: 8}

	lowered := LowerFunction([]string{"entry"}, instrs, res, backend.CompileOptions{})
	list := lowered.Instructions["entry"]

	var sawLea, sawStoreMem, sawLoadMem bool
	for _, i := range list {
		switch i.Mnemonic {
		case "lea":
			sawLea = true
		case "mov":
			for _, op := range i.Operands {
				if op.Kind == amd64.OperandMem {
					if i.Operands[0].Kind == amd64.OperandMem {
						sawStoreMem = true
					} else {
						sawLoadMem = true
					}
				}
			}
		}
	}
	require.True(t, sawLea)
	require.True(t, sawStoreMem)
	require.True(t, sawLoadMem)
	require.Equal(t, 8, res.FrameSize)
}

func TestLowerFunction_ConditionalJumpLowersToJccWithBlockLabel(t *testing.T) {
	instrs := map[string][]*backend.MachineInstr{
		"entry": {
			{Op: backend.MIJumpIf, Args: []backend.MIOperand{backend.LabelOperand("else")}, Cond: ir.CmpNe, Typ: ir.Void()},
			{Op: backend.MIJump, Args: []backend.MIOperand{backend.LabelOperand("then")}, Typ: ir.Void()},
		},
	}
	res := &regalloc.Result{}

	lowered := LowerFunction([]string{"entry"}, instrs, res, backend.CompileOptions{})
	list := lowered.Instructions["entry"]
	require.Len(t, list, 2)
	require.Equal(t, "jne", list[0].Mnemonic)
	require.Equal(t, amd64.OperandBlockLinkDestination, list[0].Operands[0].Kind)
	require.Equal(t, "else", list[0].Operands[0].Label)
	require.Equal(t, "jmp", list[1].Mnemonic)
	require.Equal(t, "then", list[1].Operands[0].Label)
}

func TestLowerFunction_VariadicCallZeroesRaxBeforeCall(t *testing.T) {
	rax := backend.RealOperand(RAX, ir.I64())
	instrs := map[string][]*backend.MachineInstr{
		"entry": {
			{Op: backend.MIXor, Result: &rax, Args: []backend.MIOperand{rax, rax}, Typ: ir.I64()},
			{Op: backend.MICall, CallTarget: "printf", Typ: ir.Void()},
		},
	}
	res := &regalloc.Result{}

	lowered := LowerFunction([]string{"entry"}, instrs, res, backend.CompileOptions{})
	list := lowered.Instructions["entry"]
	require.Len(t, list, 2)
	require.Equal(t, "xor", list[0].Mnemonic)
	require.Equal(t, "call", list[1].Mnemonic)
	require.Equal(t, "printf", list[1].Operands[0].Symbol)
}

func TestLowerFunction_DivEmitsCqoOnlyForSignedType(t *testing.T) {
	rax := backend.RealOperand(RAX, ir.I64())
	signed := map[string][]*backend.MachineInstr{
		"entry": {{Op: backend.MIDiv, Result: &rax, Args: []backend.MIOperand{backend.RealOperand(RAX, ir.I64()), backend.RealOperand(RCX, ir.I64())}, Typ: ir.I64()}},
	}
	lowered := LowerFunction([]string{"entry"}, signed, &regalloc.Result{}, backend.CompileOptions{})
	var sawCqo bool
	for _, i := range lowered.Instructions["entry"] {
		if i.Mnemonic == "cqo" {
			sawCqo = true
		}
	}
	require.True(t, sawCqo)

	unsigned := map[string][]*backend.MachineInstr{
		"entry": {{Op: backend.MIDiv, Result: &rax, Args: []backend.MIOperand{backend.RealOperand(RAX, ir.U64()), backend.RealOperand(RCX, ir.U64())}, Typ: ir.U64()}},
	}
	lowered = LowerFunction([]string{"entry"}, unsigned, &regalloc.Result{}, backend.CompileOptions{})
	sawCqo = false
	var sawDiv bool
	for _, i := range lowered.Instructions["entry"] {
		if i.Mnemonic == "cqo" {
			sawCqo = true
		}
		if i.Mnemonic == "div" {
			sawDiv = true
		}
	}
	require.False(t, sawCqo)
	require.True(t, sawDiv)
}
