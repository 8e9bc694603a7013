// Copyright (C) 2023 The Tactics Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package amdgpu

import (
	"fmt"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// log2e and ln2 as IEEE-754 single bit patterns. The hardware
// transcendentals are base 2, so e-based ops pre- and post-scale.
const (
	immLog2E = "0x3fb8aa3b"
	immLn2   = "0x3f317218"
)

// lowerer holds all state for one Lower invocation.
type lowerer struct {
	m       *ir.Module
	desc    target.Descriptor
	prog    *backend.Program
	regs    map[*ir.Value]backend.Reg
	addrs   map[*ir.Value]backend.Reg
	counts  map[string]int
	kernarg int64 // next free byte offset in the kernarg segment
}

func newLowerer(m *ir.Module, d target.Descriptor) *lowerer {
	return &lowerer{
		m:    m,
		desc: d,
		prog: &backend.Program{
			Target: d,
			Entry:  kernelSymbol(m.Name()),
		},
		regs:   map[*ir.Value]backend.Reg{},
		addrs:  map[*ir.Value]backend.Reg{},
		counts: map[string]int{},
	}
}

func (l *lowerer) newReg(class string) backend.Reg {
	r := backend.Reg{Class: class, Index: l.counts[class]}
	l.counts[class]++
	l.prog.Registers++
	return r
}

func (l *lowerer) reg(v *ir.Value) backend.Reg { return l.regs[v] }

func (l *lowerer) define(op *ir.Operation) backend.Reg {
	res := op.Results[0]
	r := l.newReg(res.Type().Kind.String())
	l.regs[res] = r
	return r
}

func (l *lowerer) push(opcode string, dst backend.Reg, srcs ...backend.Reg) {
	l.prog.Push(backend.Instruction{Opcode: opcode, Dst: []backend.Reg{dst}, Srcs: srcs})
}

func (l *lowerer) pushImm(opcode string, dst backend.Reg, imm string, srcs ...backend.Reg) {
	l.prog.Push(backend.Instruction{Opcode: opcode, Dst: []backend.Reg{dst}, Srcs: srcs, Imm: []string{imm}})
}

type translateFunc func(l *lowerer, op *ir.Operation) error

// translations is the per-opcode lowering table. Softmax has no entry:
// the block-wide two-phase reduction it needs is not expressible with
// the LDS primitives this backend emits, so it is reported as an
// unsupported construct rather than lowered wrongly.
var translations = map[ir.Op]translateFunc{
	ir.OpParam:     (*lowerer).param,
	ir.OpConst:     (*lowerer).constant,
	ir.OpAdd:       vop("add"),
	ir.OpSub:       vop("sub"),
	ir.OpMul:       vop("mul"),
	ir.OpDiv:       (*lowerer).div,
	ir.OpMax:       vop("max"),
	ir.OpNeg:       (*lowerer).neg,
	ir.OpSqrt:      (*lowerer).sqrt,
	ir.OpExp:       (*lowerer).exp,
	ir.OpRelu:      (*lowerer).relu,
	ir.OpSigmoid:   (*lowerer).sigmoid,
	ir.OpSoftplus:  (*lowerer).softplus,
	ir.OpSum:       (*lowerer).sum,
	ir.OpMatMul:    (*lowerer).matmul,
	ir.OpUnsqueeze: (*lowerer).alias,
	ir.OpReshape:   (*lowerer).alias,
	ir.OpPad:       (*lowerer).pad,
	ir.OpRet:       (*lowerer).ret,
}

func (l *lowerer) translate() error {
	l.prologue()
	for _, op := range l.m.Operations() {
		fn, ok := translations[op.Opcode]
		if !ok {
			return &backend.UnsupportedConstructError{Op: op.Opcode, Target: target.AMDGPU}
		}
		if err := fn(l, op); err != nil {
			return err
		}
	}
	return nil
}

// prologue computes the flattened workitem index from the dispatch
// registers: workgroup id, workgroup size and the lane's workitem id.
func (l *lowerer) prologue() {
	wgid := l.newReg("u32")
	wgsize := l.newReg("u32")
	tid := l.newReg("u32")
	flat := l.newReg("u32")
	l.push("v_mov_b32", wgid, backend.Reg{Class: "sreg", Index: 0})
	l.push("v_mov_b32", wgsize, backend.Reg{Class: "sreg", Index: 1})
	l.push("v_mov_b32", tid, backend.Reg{Class: "sreg", Index: 2})
	l.push("v_mad_u32_u24", flat, wgid, wgsize, tid)
}

// loadSuffix is the memory-op width suffix for a scalar kind.
func loadSuffix(kind ir.Kind) string {
	return fmt.Sprintf("b%d", kind.Bits())
}

// loadKernargPointer fetches the 64-bit buffer pointer stored at the
// next kernarg slot.
func (l *lowerer) loadKernargPointer() backend.Reg {
	addr := l.newReg("u64")
	l.pushImm("s_load_b64", addr, fmt.Sprintf("0x%x", l.kernarg))
	l.kernarg += 8
	return addr
}

func (l *lowerer) param(op *ir.Operation) error {
	res := op.Results[0]
	t := res.Type()
	index, _ := op.Attrs["index"].Int()
	name := fmt.Sprintf("%s_arg_%d", l.prog.Entry, index)
	l.prog.Params = append(l.prog.Params, backend.Param{
		Name:      name,
		Type:      t,
		SizeBytes: t.Elems() * int64(t.Kind.Bits()) / 8,
	})

	addr := l.loadKernargPointer()
	l.addrs[res] = addr

	val := l.define(op)
	l.push("global_load_"+loadSuffix(t.Kind), val, addr)
	return nil
}

func (l *lowerer) constant(op *ir.Operation) error {
	dst := l.define(op)
	if f, ok := op.Attrs["value"].Float(); ok {
		l.pushImm("v_mov_b32", dst, immFloat(f))
	} else if i, ok := op.Attrs["value"].Int(); ok {
		l.pushImm("v_mov_b32", dst, immInt(i))
	}
	return nil
}

// vop builds a VALU binary-op lowering, e.g. v_add_f32.
func vop(mnemonic string) translateFunc {
	return func(l *lowerer, op *ir.Operation) error {
		kind := op.Results[0].Type().Kind
		dst := l.define(op)
		l.push("v_"+mnemonic+"_"+kind.String(), dst, l.reg(op.Operands[0]), l.reg(op.Operands[1]))
		return nil
	}
}

// div has no VALU instruction; floats go through the reciprocal.
func (l *lowerer) div(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	k := kind.String()
	dst := l.define(op)
	if !kind.IsFloat() {
		l.push("v_div_"+k, dst, l.reg(op.Operands[0]), l.reg(op.Operands[1]))
		return nil
	}
	rcp := l.newReg(k)
	l.push("v_rcp_"+k, rcp, l.reg(op.Operands[1]))
	l.push("v_mul_"+k, dst, l.reg(op.Operands[0]), rcp)
	return nil
}

// neg flips the sign bit for floats and subtracts from zero for ints.
func (l *lowerer) neg(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	dst := l.define(op)
	if kind.IsFloat() {
		l.pushImm("v_xor_b32", dst, "0x80000000", l.reg(op.Operands[0]))
		return nil
	}
	l.pushImm("v_sub_"+kind.String(), dst, "0", l.reg(op.Operands[0]))
	return nil
}

func (l *lowerer) sqrt(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	dst := l.define(op)
	l.push("v_sqrt_"+k, dst, l.reg(op.Operands[0]))
	return nil
}

func (l *lowerer) exp(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	scaled := l.newReg(k)
	l.pushImm("v_mul_"+k, scaled, immLog2E, l.reg(op.Operands[0]))
	dst := l.define(op)
	l.push("v_exp_"+k, dst, scaled)
	return nil
}

func (l *lowerer) relu(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	dst := l.define(op)
	l.pushImm("v_max_"+k, dst, "0", l.reg(op.Operands[0]))
	return nil
}

func (l *lowerer) sigmoid(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	neg := l.newReg(k)
	l.pushImm("v_xor_b32", neg, "0x80000000", l.reg(op.Operands[0]))
	scaled := l.newReg(k)
	l.pushImm("v_mul_"+k, scaled, immLog2E, neg)
	e := l.newReg(k)
	l.push("v_exp_"+k, e, scaled)
	one := l.newReg(k)
	l.pushImm("v_add_"+k, one, "1", e)
	dst := l.define(op)
	l.push("v_rcp_"+k, dst, one)
	return nil
}

func (l *lowerer) softplus(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	scaled := l.newReg(k)
	l.pushImm("v_mul_"+k, scaled, immLog2E, l.reg(op.Operands[0]))
	e := l.newReg(k)
	l.push("v_exp_"+k, e, scaled)
	one := l.newReg(k)
	l.pushImm("v_add_"+k, one, "1", e)
	lg := l.newReg(k)
	l.push("v_log_"+k, lg, one)
	dst := l.define(op)
	l.pushImm("v_mul_"+k, dst, immLn2, lg)
	return nil
}

// sum reduces across the workgroup through LDS, one slot per lane of a
// wavefront.
func (l *lowerer) sum(op *ir.Operation) error {
	kind := op.Operands[0].Type().Kind
	l.prog.SharedMemoryBytes += 64 * kind.Bits() / 8
	dst := l.define(op)
	l.prog.Push(backend.Instruction{
		Opcode:  "ds_reduce_add_" + kind.String(),
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0])},
		Comment: "LDS reduction over axis " + op.Attrs["axis"].String(),
	})
	return nil
}

func (l *lowerer) matmul(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	acc := l.newReg(k)
	l.pushImm("v_mov_b32", acc, "0")
	dst := l.define(op)
	inner := op.Operands[0].Type().Dims[1]
	l.prog.Push(backend.Instruction{
		Opcode:  "v_fma_" + k,
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0]), l.reg(op.Operands[1]), acc},
		Imm:     []string{immInt(inner)},
		Comment: "dot-product loop over inner dimension",
	})
	return nil
}

// alias lowers pure layout changes; the result shares the operand's
// register.
func (l *lowerer) alias(op *ir.Operation) error {
	l.regs[op.Results[0]] = l.reg(op.Operands[0])
	return nil
}

func (l *lowerer) pad(op *ir.Operation) error {
	k := op.Results[0].Type().Kind.String()
	dst := l.define(op)
	zero := l.newReg(k)
	l.pushImm("v_mov_b32", zero, "0")
	l.prog.Push(backend.Instruction{
		Opcode:  "v_cndmask_b32",
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0]), zero},
		Comment: "zero padding, widths " + op.Attrs["widths"].String(),
	})
	return nil
}

func (l *lowerer) ret(op *ir.Operation) error {
	for i, v := range op.Operands {
		t := v.Type()
		name := fmt.Sprintf("%s_out_%d", l.prog.Entry, i)
		l.prog.Params = append(l.prog.Params, backend.Param{
			Name:      name,
			Type:      t,
			SizeBytes: t.Elems() * int64(t.Kind.Bits()) / 8,
		})
		addr := l.loadKernargPointer()
		l.push("global_store_"+loadSuffix(t.Kind), addr, l.reg(v))
	}
	l.prog.Push(backend.Instruction{Opcode: "s_endpgm"})
	return nil
}
