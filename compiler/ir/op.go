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

package ir

import (
	"fmt"
	"sort"
)

// Op is a typed opcode in the tensor dialect.
type Op string

// The tensor dialect. Mirrors the node set of the tactics variable graph.
const (
	// OpParam introduces a kernel parameter. Attrs: index (int), type.
	OpParam = Op("param")
	// OpConst introduces a splat constant. Attrs: type, value (int|float).
	OpConst = Op("const")
	// OpAdd is elementwise addition of two same-typed tensors.
	OpAdd = Op("add")
	// OpSub is elementwise subtraction.
	OpSub = Op("sub")
	// OpMul is elementwise multiplication.
	OpMul = Op("mul")
	// OpDiv is elementwise division.
	OpDiv = Op("div")
	// OpMax is elementwise maximum.
	OpMax = Op("max")
	// OpNeg is elementwise negation.
	OpNeg = Op("neg")
	// OpSqrt is elementwise square root. Float kinds only.
	OpSqrt = Op("sqrt")
	// OpExp is elementwise natural exponent. Float kinds only.
	OpExp = Op("exp")
	// OpRelu is the rectified linear unit.
	OpRelu = Op("relu")
	// OpSigmoid is the logistic function. Float kinds only.
	OpSigmoid = Op("sigmoid")
	// OpSoftplus is log(1+exp(x)). Float kinds only.
	OpSoftplus = Op("softplus")
	// OpSum reduces one axis by addition. Attrs: axis (int).
	OpSum = Op("sum")
	// OpSoftmax normalizes along one axis. Attrs: axis (int). Float only.
	OpSoftmax = Op("softmax")
	// OpMatMul multiplies two rank-2 tensors.
	OpMatMul = Op("matmul")
	// OpUnsqueeze inserts a size-1 dimension. Attrs: axis (int).
	OpUnsqueeze = Op("unsqueeze")
	// OpPad zero-pads a tensor. Attrs: widths (ints, lo/hi per axis).
	OpPad = Op("pad")
	// OpReshape reinterprets the shape. Attrs: shape (ints).
	OpReshape = Op("reshape")
	// OpRet terminates a region, yielding its operands as kernel outputs.
	OpRet = Op("ret")
)

// signature describes the structural contract of an opcode.
type signature struct {
	operands int // exact operand count, or -1 for one-or-more
	results  int
	pure     bool // pure ops with unused results may be removed
	infer    func(op *Operation) ([]Type, error)
}

func (op Op) String() string { return string(op) }

// Known returns true if op is part of the dialect.
func (op Op) Known() bool {
	_, ok := signatures[op]
	return ok
}

// Pure returns true if the opcode has no effects beyond its results.
func (op Op) Pure() bool { return signatures[op].pure }

// Opcodes returns every opcode of the dialect in sorted order.
func Opcodes() []Op {
	out := make([]Op, 0, len(signatures))
	for op := range signatures {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var signatures = map[Op]signature{
	OpParam:     {0, 1, true, inferParam},
	OpConst:     {0, 1, true, inferConst},
	OpAdd:       {2, 1, true, inferSameBinary},
	OpSub:       {2, 1, true, inferSameBinary},
	OpMul:       {2, 1, true, inferSameBinary},
	OpDiv:       {2, 1, true, inferSameBinary},
	OpMax:       {2, 1, true, inferSameBinary},
	OpNeg:       {1, 1, true, inferSameUnary},
	OpSqrt:      {1, 1, true, inferFloatUnary},
	OpExp:       {1, 1, true, inferFloatUnary},
	OpRelu:      {1, 1, true, inferSameUnary},
	OpSigmoid:   {1, 1, true, inferFloatUnary},
	OpSoftplus:  {1, 1, true, inferFloatUnary},
	OpSum:       {1, 1, true, inferSum},
	OpSoftmax:   {1, 1, true, inferSoftmax},
	OpMatMul:    {2, 1, true, inferMatMul},
	OpUnsqueeze: {1, 1, true, inferUnsqueeze},
	OpPad:       {1, 1, true, inferPad},
	OpReshape:   {1, 1, true, inferReshape},
	OpRet:       {-1, 0, false, inferRet},
}

func inferParam(op *Operation) ([]Type, error) {
	t, ok := op.Attrs["type"].Type()
	if !ok || !t.IsValid() {
		return nil, fmt.Errorf("param requires a valid type attribute")
	}
	if _, ok := op.Attrs["index"].Int(); !ok {
		return nil, fmt.Errorf("param requires an integer index attribute")
	}
	return []Type{t}, nil
}

func inferConst(op *Operation) ([]Type, error) {
	t, ok := op.Attrs["type"].Type()
	if !ok || !t.IsValid() {
		return nil, fmt.Errorf("const requires a valid type attribute")
	}
	v := op.Attrs["value"]
	switch {
	case t.Kind.IsFloat():
		if _, ok := v.Float(); !ok {
			return nil, fmt.Errorf("const of %v requires a float value attribute", t)
		}
	default:
		if _, ok := v.Int(); !ok {
			return nil, fmt.Errorf("const of %v requires an integer value attribute", t)
		}
	}
	return []Type{t}, nil
}

func inferSameBinary(op *Operation) ([]Type, error) {
	a, b := op.Operands[0].Type(), op.Operands[1].Type()
	if !a.Equal(b) {
		return nil, fmt.Errorf("operands have mismatched types %v and %v", a, b)
	}
	return []Type{a}, nil
}

func inferSameUnary(op *Operation) ([]Type, error) {
	return []Type{op.Operands[0].Type()}, nil
}

func inferFloatUnary(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	if !t.Kind.IsFloat() {
		return nil, fmt.Errorf("%v requires a float operand, got %v", op.Opcode, t)
	}
	return []Type{t}, nil
}

func axisAttr(op *Operation, rank int, insert bool) (int, error) {
	axis, ok := op.Attrs["axis"].Int()
	if !ok {
		return 0, fmt.Errorf("%v requires an integer axis attribute", op.Opcode)
	}
	limit := rank
	if insert {
		limit = rank + 1
	}
	if axis < 0 || axis >= int64(limit) {
		return 0, fmt.Errorf("%v axis %d out of range for rank %d", op.Opcode, axis, rank)
	}
	return int(axis), nil
}

func inferSum(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	axis, err := axisAttr(op, t.Rank(), false)
	if err != nil {
		return nil, err
	}
	dims := append([]int64{}, t.Dims[:axis]...)
	dims = append(dims, t.Dims[axis+1:]...)
	return []Type{Tensor(t.Kind, dims...)}, nil
}

func inferSoftmax(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	if !t.Kind.IsFloat() {
		return nil, fmt.Errorf("softmax requires a float operand, got %v", t)
	}
	if _, err := axisAttr(op, t.Rank(), false); err != nil {
		return nil, err
	}
	return []Type{t}, nil
}

func inferMatMul(op *Operation) ([]Type, error) {
	a, b := op.Operands[0].Type(), op.Operands[1].Type()
	if a.Rank() != 2 || b.Rank() != 2 {
		return nil, fmt.Errorf("matmul requires rank-2 operands, got %v and %v", a, b)
	}
	if a.Kind != b.Kind {
		return nil, fmt.Errorf("matmul operands have mismatched kinds %v and %v", a.Kind, b.Kind)
	}
	if a.Dims[1] != b.Dims[0] {
		return nil, fmt.Errorf("matmul inner dimensions disagree: %v vs %v", a, b)
	}
	return []Type{Tensor(a.Kind, a.Dims[0], b.Dims[1])}, nil
}

func inferUnsqueeze(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	axis, err := axisAttr(op, t.Rank(), true)
	if err != nil {
		return nil, err
	}
	dims := append([]int64{}, t.Dims[:axis]...)
	dims = append(dims, 1)
	dims = append(dims, t.Dims[axis:]...)
	return []Type{Tensor(t.Kind, dims...)}, nil
}

func inferPad(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	widths, ok := op.Attrs["widths"].Ints()
	if !ok || len(widths) != 2*t.Rank() {
		return nil, fmt.Errorf("pad requires a widths attribute of %d ints", 2*t.Rank())
	}
	dims := append([]int64{}, t.Dims...)
	for i := range dims {
		lo, hi := widths[2*i], widths[2*i+1]
		if lo < 0 || hi < 0 {
			return nil, fmt.Errorf("pad widths must be non-negative, got %d,%d for axis %d", lo, hi, i)
		}
		dims[i] += lo + hi
	}
	return []Type{Tensor(t.Kind, dims...)}, nil
}

func inferReshape(op *Operation) ([]Type, error) {
	t := op.Operands[0].Type()
	shape, ok := op.Attrs["shape"].Ints()
	if !ok {
		return nil, fmt.Errorf("reshape requires a shape attribute")
	}
	out := Tensor(t.Kind, append([]int64{}, shape...)...)
	if !out.IsValid() {
		return nil, fmt.Errorf("reshape to invalid shape %v", shape)
	}
	if out.Elems() != t.Elems() {
		return nil, fmt.Errorf("reshape changes element count: %v to %v", t, out)
	}
	return []Type{out}, nil
}

func inferRet(op *Operation) ([]Type, error) {
	return nil, nil
}
