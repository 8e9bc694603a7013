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

package pass

import (
	"context"

	"github.com/quint-lang/tactics/compiler/ir"
)

// FoldIdentities returns a pass that removes arithmetic identities:
// x+0, x-0, 0+x, x*1, 1*x and x/1 all forward to x. The orphaned
// constants are left for DeadCode to sweep.
func FoldIdentities() Pass {
	return New("fold-identities", runFoldIdentities)
}

func runFoldIdentities(ctx context.Context, m *ir.Module) (*ir.Module, error) {
	if !flat(m) {
		return m, nil
	}
	r := newRewriter()
	changed := false
	for _, op := range m.Operations() {
		if fwd := identityOperand(op); fwd != nil {
			r.forward(op.Results[0], fwd)
			changed = true
			continue
		}
		if err := r.copyOp(op); err != nil {
			return nil, err
		}
	}
	if !changed {
		return m, nil
	}
	return ir.NewModule(m.Name(), r.region)
}

// identityOperand returns the operand the operation forwards to when it is
// an arithmetic identity, or nil.
func identityOperand(op *ir.Operation) *ir.Value {
	switch op.Opcode {
	case ir.OpAdd:
		if isSplat(op.Operands[1], 0) {
			return op.Operands[0]
		}
		if isSplat(op.Operands[0], 0) {
			return op.Operands[1]
		}
	case ir.OpSub:
		if isSplat(op.Operands[1], 0) {
			return op.Operands[0]
		}
	case ir.OpMul:
		if isSplat(op.Operands[1], 1) {
			return op.Operands[0]
		}
		if isSplat(op.Operands[0], 1) {
			return op.Operands[1]
		}
	case ir.OpDiv:
		if isSplat(op.Operands[1], 1) {
			return op.Operands[0]
		}
	}
	return nil
}

// isSplat returns true if v is a const splat holding the scalar c.
func isSplat(v *ir.Value, c float64) bool {
	def := v.Def()
	if def == nil || def.Opcode != ir.OpConst {
		return false
	}
	if f, ok := def.Attrs["value"].Float(); ok {
		return f == c
	}
	if i, ok := def.Attrs["value"].Int(); ok {
		return float64(i) == c
	}
	return false
}
