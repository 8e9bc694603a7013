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

package nvptx

import (
	"fmt"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// lowerer holds all state for one Lower invocation.
type lowerer struct {
	m      *ir.Module
	desc   target.Descriptor
	prog   *backend.Program
	regs   map[*ir.Value]backend.Reg // value -> compute register
	addrs  map[*ir.Value]backend.Reg // param value -> global address register
	counts map[string]int
}

func newLowerer(m *ir.Module, d target.Descriptor) *lowerer {
	return &lowerer{
		m:    m,
		desc: d,
		prog: &backend.Program{
			Target: d,
			Entry:  mangle(m.Name()),
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

// reg returns the compute register holding v.
func (l *lowerer) reg(v *ir.Value) backend.Reg { return l.regs[v] }

// define allocates the compute register for the single result of op.
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

// translateFunc lowers one operation into PTX instructions.
type translateFunc func(l *lowerer, op *ir.Operation) error

// translations is the per-opcode lowering table. An opcode missing here
// is an unsupported construct on NVPTX. The table is never mutated after
// init, so it is safe for concurrent lowerings.
var translations = map[ir.Op]translateFunc{
	ir.OpParam:     (*lowerer).param,
	ir.OpConst:     (*lowerer).constant,
	ir.OpAdd:       arith("add"),
	ir.OpSub:       arith("sub"),
	ir.OpMul:       arith("mul"),
	ir.OpDiv:       (*lowerer).div,
	ir.OpMax:       arith("max"),
	ir.OpNeg:       unary("neg"),
	ir.OpSqrt:      unary("sqrt.rn"),
	ir.OpExp:       (*lowerer).exp,
	ir.OpRelu:      (*lowerer).relu,
	ir.OpSigmoid:   (*lowerer).sigmoid,
	ir.OpSoftplus:  (*lowerer).softplus,
	ir.OpSum:       (*lowerer).sum,
	ir.OpSoftmax:   (*lowerer).softmax,
	ir.OpMatMul:    (*lowerer).matmul,
	ir.OpUnsqueeze: (*lowerer).alias,
	ir.OpReshape:   (*lowerer).alias,
	ir.OpPad:       (*lowerer).pad,
	ir.OpRet:       (*lowerer).ret,
}

// translate lowers every operation of the module in order.
func (l *lowerer) translate() error {
	l.prologue()
	for _, op := range l.m.Operations() {
		fn, ok := translations[op.Opcode]
		if !ok {
			return &backend.UnsupportedConstructError{Op: op.Opcode, Target: target.NVPTX}
		}
		if err := fn(l, op); err != nil {
			return err
		}
	}
	return nil
}

// prologue computes the global thread index used by every elementwise op.
func (l *lowerer) prologue() {
	ctaid := l.newReg("u32")
	ntid := l.newReg("u32")
	tid := l.newReg("u32")
	gtid := l.newReg("u32")
	l.push("mov.u32", ctaid, backend.Reg{Class: "sreg", Index: 0})
	l.push("mov.u32", ntid, backend.Reg{Class: "sreg", Index: 1})
	l.push("mov.u32", tid, backend.Reg{Class: "sreg", Index: 2})
	l.push("mad.lo.u32", gtid, ctaid, ntid, tid)
}

func (l *lowerer) param(op *ir.Operation) error {
	res := op.Results[0]
	t := res.Type()
	index, _ := op.Attrs["index"].Int()
	name := fmt.Sprintf("%s_param_%d", l.prog.Entry, index)
	l.prog.Params = append(l.prog.Params, backend.Param{
		Name:      name,
		Type:      t,
		SizeBytes: t.Elems() * int64(t.Kind.Bits()) / 8,
	})

	addr := l.newReg("u64")
	l.addrs[res] = addr
	l.pushImm("ld.param.u64", addr, "["+name+"]")
	l.push("cvta.to.global.u64", addr, addr)

	val := l.define(op)
	l.push("ld.global."+t.Kind.String(), val, addr)
	return nil
}

func (l *lowerer) constant(op *ir.Operation) error {
	t := op.Results[0].Type()
	dst := l.define(op)
	if f, ok := op.Attrs["value"].Float(); ok {
		l.pushImm("mov."+t.Kind.String(), dst, immFloat(f))
	} else if i, ok := op.Attrs["value"].Int(); ok {
		l.pushImm("mov."+t.Kind.String(), dst, immInt(i))
	}
	return nil
}

func arith(mnemonic string) translateFunc {
	return func(l *lowerer, op *ir.Operation) error {
		kind := op.Results[0].Type().Kind
		dst := l.define(op)
		l.push(mnemonic+"."+kind.String(), dst, l.reg(op.Operands[0]), l.reg(op.Operands[1]))
		return nil
	}
}

func unary(mnemonic string) translateFunc {
	return func(l *lowerer, op *ir.Operation) error {
		kind := op.Results[0].Type().Kind
		dst := l.define(op)
		l.push(mnemonic+"."+kind.String(), dst, l.reg(op.Operands[0]))
		return nil
	}
}

func (l *lowerer) div(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	mnemonic := "div." + kind.String()
	if kind.IsFloat() {
		mnemonic = "div.rn." + kind.String()
	}
	dst := l.define(op)
	l.push(mnemonic, dst, l.reg(op.Operands[0]), l.reg(op.Operands[1]))
	return nil
}

// exp lowers to ex2 with a log2(e) pre-scale; PTX has no ex in hardware.
func (l *lowerer) exp(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	scaled := l.newReg(kind.String())
	l.pushImm("mul."+kind.String(), scaled, "0f3FB8AA3B", l.reg(op.Operands[0]))
	dst := l.define(op)
	l.push("ex2.approx."+kind.String(), dst, scaled)
	return nil
}

func (l *lowerer) relu(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	dst := l.define(op)
	l.pushImm("max."+kind.String(), dst, "0", l.reg(op.Operands[0]))
	return nil
}

// sigmoid lowers to 1/(1+exp(-x)).
func (l *lowerer) sigmoid(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	k := kind.String()
	neg := l.newReg(k)
	l.push("neg."+k, neg, l.reg(op.Operands[0]))
	scaled := l.newReg(k)
	l.pushImm("mul."+k, scaled, "0f3FB8AA3B", neg)
	e := l.newReg(k)
	l.push("ex2.approx."+k, e, scaled)
	one := l.newReg(k)
	l.pushImm("add."+k, one, "1", e)
	dst := l.define(op)
	l.push("rcp.rn."+k, dst, one)
	return nil
}

// softplus lowers to log(1+exp(x)).
func (l *lowerer) softplus(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	k := kind.String()
	scaled := l.newReg(k)
	l.pushImm("mul."+k, scaled, "0f3FB8AA3B", l.reg(op.Operands[0]))
	e := l.newReg(k)
	l.push("ex2.approx."+k, e, scaled)
	one := l.newReg(k)
	l.pushImm("add."+k, one, "1", e)
	lg := l.newReg(k)
	l.push("lg2.approx."+k, lg, one)
	dst := l.define(op)
	l.pushImm("mul."+k, dst, "0f3F317218", lg)
	return nil
}

// reduceShared reserves block-reduction staging in shared memory.
func (l *lowerer) reduceShared(kind ir.Kind) {
	// One slot per warp of a full block.
	l.prog.SharedMemoryBytes += 32 * kind.Bits() / 8
}

func (l *lowerer) sum(op *ir.Operation) error {
	kind := op.Operands[0].Type().Kind
	l.reduceShared(kind)
	dst := l.define(op)
	l.prog.Push(backend.Instruction{
		Opcode:  "red.block.add." + kind.String(),
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0])},
		Comment: "block reduction over axis " + op.Attrs["axis"].String(),
	})
	return nil
}

func (l *lowerer) softmax(op *ir.Operation) error {
	kind := op.Operands[0].Type().Kind
	k := kind.String()
	l.reduceShared(kind)
	l.reduceShared(kind)
	src := l.reg(op.Operands[0])
	peak := l.newReg(k)
	l.prog.Push(backend.Instruction{
		Opcode: "red.block.max." + k,
		Dst:    []backend.Reg{peak}, Srcs: []backend.Reg{src},
		Comment: "softmax max over axis " + op.Attrs["axis"].String(),
	})
	shifted := l.newReg(k)
	l.push("sub."+k, shifted, src, peak)
	scaled := l.newReg(k)
	l.pushImm("mul."+k, scaled, "0f3FB8AA3B", shifted)
	e := l.newReg(k)
	l.push("ex2.approx."+k, e, scaled)
	total := l.newReg(k)
	l.prog.Push(backend.Instruction{
		Opcode: "red.block.add." + k,
		Dst:    []backend.Reg{total}, Srcs: []backend.Reg{e},
	})
	dst := l.define(op)
	l.push("div.rn."+k, dst, e, total)
	return nil
}

func (l *lowerer) matmul(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	k := kind.String()
	acc := l.newReg(k)
	l.pushImm("mov."+k, acc, "0")
	dst := l.define(op)
	inner := op.Operands[0].Type().Dims[1]
	l.prog.Push(backend.Instruction{
		Opcode:  "fma.rn." + k,
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0]), l.reg(op.Operands[1]), acc},
		Imm:     []string{immInt(inner)},
		Comment: "dot-product loop over inner dimension",
	})
	return nil
}

// alias lowers pure layout changes: the data is untouched, the result
// shares the operand's register.
func (l *lowerer) alias(op *ir.Operation) error {
	l.regs[op.Results[0]] = l.reg(op.Operands[0])
	return nil
}

func (l *lowerer) pad(op *ir.Operation) error {
	kind := op.Results[0].Type().Kind
	dst := l.define(op)
	zero := l.newReg(kind.String())
	l.pushImm("mov."+kind.String(), zero, "0")
	l.prog.Push(backend.Instruction{
		Opcode:  "sel." + kind.String(),
		Dst:     []backend.Reg{dst},
		Srcs:    []backend.Reg{l.reg(op.Operands[0]), zero},
		Comment: "zero padding, widths " + op.Attrs["widths"].String(),
	})
	return nil
}

// ret stores each returned value to its output buffer.
func (l *lowerer) ret(op *ir.Operation) error {
	for i, v := range op.Operands {
		t := v.Type()
		name := fmt.Sprintf("%s_out_%d", l.prog.Entry, i)
		l.prog.Params = append(l.prog.Params, backend.Param{
			Name:      name,
			Type:      t,
			SizeBytes: t.Elems() * int64(t.Kind.Bits()) / 8,
		})
		addr := l.newReg("u64")
		l.pushImm("ld.param.u64", addr, "["+name+"]")
		l.push("cvta.to.global.u64", addr, addr)
		l.push("st.global."+t.Kind.String(), addr, l.reg(v))
	}
	l.prog.Push(backend.Instruction{Opcode: "ret"})
	return nil
}
