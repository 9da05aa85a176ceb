package wasm

import (
	"github.com/loomgen/loomgen/backend"
	"github.com/loomgen/loomgen/dag"
	"github.com/loomgen/loomgen/ir"
)

// Machine is the WebAssembly instruction selector. It emits the same
// generic MI opcodes as the amd64 Machine; only RegisterFile/ABI and the
// encode step differ, since "allocation" here is trivial (locals never
// run out) and there is no stack-argument convention to honor.
type Machine struct {
	rf backend.RegisterFile
}

// New returns a WASM Machine.
func New() *Machine { return &Machine{rf: NewRegisterFile()} }

func (m *Machine) Name() string                       { return "wasm" }
func (m *Machine) RegisterFile() backend.RegisterFile { return m.rf }
func (m *Machine) ABI() backend.ABI                   { return ABI }

// RequiredTmps mirrors amd64's: GetElemPtr needs one scratch local for the
// index*scale partial product.
func (m *Machine) RequiredTmps(node *dag.Node) []backend.TmpInfo {
	if node.Op == dag.OpGetElemPtr {
		return []backend.TmpInfo{{Constraint: backend.TmpRequiresGR, Typ: ir.I64()}}
	}
	return nil
}

type selState struct {
	alloc   *backend.Allocator
	tmps    func(node *dag.Node) []backend.VReg
	varRegs map[string]backend.VReg
}

func (s *selState) vreg(v ir.Variable) backend.VReg {
	if r, ok := s.varRegs[v.Name]; ok {
		return r
	}
	r := s.alloc.Fresh()
	s.varRegs[v.Name] = r
	return r
}

func (s *selState) operand(o dag.Operand) backend.MIOperand {
	switch {
	case o.Target == dag.TargetRegister:
		return backend.RealOperand(backend.RealReg(o.RegRaw), o.Typ)
	case o.Target == dag.TargetConstant && o.Op == dag.OperandAddrOfConst:
		return backend.MIOperand{Kind: backend.MIOperandLabel, Label: o.ConstRef, Typ: o.Typ}
	case o.Target == dag.TargetConstant:
		return backend.ImmOperand(o.Const.Int64(), o.Typ)
	case o.Target == dag.TargetUnallocatedVar:
		return backend.VRegOperand(s.vreg(o.Var), o.Typ)
	default:
		return backend.MIOperand{Typ: o.Typ}
	}
}

// Lower walks fn's DAG nodes, block by block, emitting MI. There is no
// register-pressure-driven spilling on this target, but the MI stream still
// flows through the same regalloc.Allocate entry point so downstream tooling
// (scopes, frame bookkeeping) stays uniform across backends; on WASM that
// call trivially colors every VReg since the local pool always has room.
func (m *Machine) Lower(fn *dag.Function, alloc *backend.Allocator, tmps func(node *dag.Node) []backend.VReg) map[string][]*backend.MachineInstr {
	s := &selState{alloc: alloc, tmps: tmps, varRegs: map[string]backend.VReg{}}
	out := map[string][]*backend.MachineInstr{}
	for i, b := range fn.BlockOrder {
		var mis []*backend.MachineInstr
		if i == 0 {
			mis = append(mis, s.bindArgs(fn.Sig)...)
		}
		for _, n := range fn.Blocks[b] {
			mis = append(mis, s.lowerNode(n)...)
		}
		out[b] = mis
	}
	return out
}

// bindArgs copies each argument local into the vreg its name is looked up
// under for the rest of the function; mirrors amd64's bindArgs, classifying
// by the same int/float pool order regalloc.ArgProcessor reports separately.
func (s *selState) bindArgs(sig ir.Signature) []*backend.MachineInstr {
	var out []*backend.MachineInstr
	intRegs, floatRegs := ABI.IntArgRegs(), ABI.FloatArgRegs()
	intIdx, floatIdx := 0, 0
	for _, a := range sig.Args {
		dst := backend.VRegOperand(s.vreg(ir.Variable{Name: a.Name, Typ: a.Typ}), a.Typ)
		if a.Typ.Float() {
			if floatIdx < len(floatRegs) {
				out = append(out, mi(backend.MIFMove, resultOf(dst), a.Typ, backend.RealOperand(floatRegs[floatIdx], a.Typ)))
				floatIdx++
			}
			continue
		}
		if intIdx < len(intRegs) {
			out = append(out, mi(backend.MIMove, resultOf(dst), a.Typ, backend.RealOperand(intRegs[intIdx], a.Typ)))
			intIdx++
		}
	}
	return out
}

func mi(op backend.MIOp, result *backend.MIOperand, typ ir.Type, args ...backend.MIOperand) *backend.MachineInstr {
	return &backend.MachineInstr{Op: op, Result: result, Typ: typ, Args: args}
}

func resultOf(o backend.MIOperand) *backend.MIOperand { r := o; return &r }

func (s *selState) lowerNode(n *dag.Node) []*backend.MachineInstr {
	switch n.Op {
	case dag.OpCopy:
		dst := s.operand(*n.Out)
		op := backend.MIMove
		if n.Typ.Float() {
			op = backend.MIFMove
		}
		return []*backend.MachineInstr{mi(op, resultOf(dst), n.Typ, s.operand(n.Ins[0]))}

	case dag.OpAdd, dag.OpSub, dag.OpMul, dag.OpDiv, dag.OpRem, dag.OpShl, dag.OpShr, dag.OpAnd, dag.OpOr, dag.OpXor:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(binMIOp(n.Op), resultOf(dst), n.Typ, s.operand(n.Ins[0]), s.operand(n.Ins[1]))}

	case dag.OpNeg:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(backend.MINeg, resultOf(dst), n.Typ, s.operand(n.Ins[0]))}

	case dag.OpCmp:
		dst := s.operand(*n.Out)
		cmp := mi(backend.MICmp, nil, n.Ins[0].Typ, s.operand(n.Ins[0]), s.operand(n.Ins[1]))
		cmp.Cond = n.Cmp
		set := mi(backend.MISetCC, resultOf(dst), n.Typ)
		set.Cond = n.Cmp
		return []*backend.MachineInstr{cmp, set}

	case dag.OpCast:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(backend.MIMove, resultOf(dst), n.Typ, s.operand(n.Ins[0]))}

	case dag.OpBr:
		return []*backend.MachineInstr{mi(backend.MIJump, nil, ir.Void(), backend.LabelOperand(n.Target))}

	case dag.OpCondBrEq:
		cmp := mi(backend.MICmp, nil, n.Ins[0].Typ, s.operand(n.Ins[0]), s.operand(n.Ins[1]))
		cmp.Cond = ir.CmpNe
		jumpTrue := mi(backend.MIJumpIf, nil, ir.Void(), backend.LabelOperand(n.ElseTarget))
		jumpTrue.Cond = ir.CmpNe
		jumpFalse := mi(backend.MIJump, nil, ir.Void(), backend.LabelOperand(n.Target))
		return []*backend.MachineInstr{cmp, jumpTrue, jumpFalse}

	case dag.OpSwitchArm:
		var out []*backend.MachineInstr
		on := s.operand(n.Ins[0])
		for _, c := range n.SwitchCases {
			cmp := mi(backend.MICmp, nil, n.Typ, on, backend.ImmOperand(c.Value.Int64(), n.Typ))
			jump := mi(backend.MIJumpIf, nil, ir.Void(), backend.LabelOperand(c.Target))
			jump.Cond = ir.CmpEq
			out = append(out, cmp, jump)
		}
		out = append(out, mi(backend.MIJump, nil, ir.Void(), backend.LabelOperand(n.Target)))
		return out

	case dag.OpGetFramePtr, dag.OpGetStackPtr:
		// WASM has no addressable frame/stack pointer register; a
		// conforming implementation would instead track the shadow-stack
		// local used for its linear-memory stack convention. Nothing
		// selects these nodes on this target today, so they are no-ops.
		return nil

	case dag.OpAlloca:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(backend.MILoadAddr, resultOf(dst), n.Typ, backend.ImmOperand(int64(n.AllocaSize), n.Typ))}

	case dag.OpLoad:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(backend.MILoad, resultOf(dst), n.Typ, s.operand(n.Ins[0]))}

	case dag.OpStore:
		return []*backend.MachineInstr{mi(backend.MIStore, nil, n.Typ, s.operand(n.Ins[1]), s.operand(n.Ins[0]))}

	case dag.OpGetElemPtr:
		dst := s.operand(*n.Out)
		tmps := s.tmps(n)
		tmp := backend.VRegOperand(tmps[0], ir.I64())
		mul := mi(backend.MIMul, resultOf(tmp), ir.I64(), s.operand(n.Ins[1]), backend.ImmOperand(int64(n.ElemType.ByteSize()), ir.I64()))
		add := mi(backend.MIAdd, resultOf(dst), n.Typ, s.operand(n.Ins[0]), tmp)
		return []*backend.MachineInstr{mul, add}

	case dag.OpReturn:
		return []*backend.MachineInstr{mi(backend.MIReturn, nil, n.Typ)}

	case dag.OpVecInsert:
		dst := s.operand(*n.Out)
		return []*backend.MachineInstr{mi(backend.MIMove, resultOf(dst), n.Typ, s.operand(n.Ins[0]))}

	case dag.OpCall:
		if n.Callee == "$select" {
			return s.lowerSelect(n)
		}
		return s.lowerCall(n)

	default:
		return nil
	}
}

func binMIOp(op dag.Opcode) backend.MIOp {
	switch op {
	case dag.OpAdd:
		return backend.MIAdd
	case dag.OpSub:
		return backend.MISub
	case dag.OpMul:
		return backend.MIMul
	case dag.OpDiv:
		return backend.MIDiv
	case dag.OpRem:
		return backend.MIRem
	case dag.OpShl:
		return backend.MIShl
	case dag.OpShr:
		return backend.MIShr
	case dag.OpAnd:
		return backend.MIAnd
	case dag.OpOr:
		return backend.MIOr
	case dag.OpXor:
		return backend.MIXor
	default:
		return backend.MIInvalid
	}
}

// lowerSelect expands select(cond, a, b) the same way amd64 does: the
// WASM encoder turns the resulting MICMovNZ into select's native
// three-operand instruction rather than amd64's cmp+cmovnz pair.
func (s *selState) lowerSelect(n *dag.Node) []*backend.MachineInstr {
	dst := s.operand(*n.Out)
	cond, a, b := s.operand(n.Ins[0]), s.operand(n.Ins[1]), s.operand(n.Ins[2])
	move := mi(backend.MIMove, resultOf(dst), n.Typ, b)
	cmp := mi(backend.MICmp, nil, n.Ins[0].Typ, cond, backend.ImmOperand(0, n.Ins[0].Typ))
	cmp.Cond = ir.CmpNe
	cmov := mi(backend.MICMovNZ, resultOf(dst), n.Typ, a)
	return []*backend.MachineInstr{move, cmp, cmov}
}

// lowerCall places every argument into its convention local (int pool then
// float pool, both sized generously rather than spilling to memory), emits
// the call, and copies the return-value local into the call's result.
func (s *selState) lowerCall(n *dag.Node) []*backend.MachineInstr {
	var out []*backend.MachineInstr
	intRegs, floatRegs := ABI.IntArgRegs(), ABI.FloatArgRegs()
	intIdx, floatIdx := 0, 0
	for _, in := range n.Ins {
		arg := s.operand(in)
		if in.Typ.Float() && floatIdx < len(floatRegs) {
			out = append(out, mi(backend.MIFMove, resultOf(backend.RealOperand(floatRegs[floatIdx], in.Typ)), in.Typ, arg))
			floatIdx++
			continue
		}
		if !in.Typ.Float() && intIdx < len(intRegs) {
			out = append(out, mi(backend.MIMove, resultOf(backend.RealOperand(intRegs[intIdx], in.Typ)), in.Typ, arg))
			intIdx++
		}
	}
	call := mi(backend.MICall, nil, n.Typ)
	call.CallTarget = n.Callee
	out = append(out, call)
	if n.Out != nil {
		dst := s.operand(*n.Out)
		retReg := ABI.IntReturnReg()
		op := backend.MIMove
		if n.Typ.Float() {
			retReg = ABI.FloatReturnReg()
			op = backend.MIFMove
		}
		out = append(out, mi(op, resultOf(dst), n.Typ, backend.RealOperand(retReg, n.Typ)))
	}
	return out
}
