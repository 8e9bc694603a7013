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

import "github.com/quint-lang/tactics/compiler/ir"

// rewriter rebuilds a flat module, remapping values from the source
// module to their replacements in the output.
type rewriter struct {
	remap  map[*ir.Value]*ir.Value
	region *ir.Region
}

func newRewriter() *rewriter {
	return &rewriter{remap: map[*ir.Value]*ir.Value{}, region: &ir.Region{}}
}

// resolve returns the output value standing in for v.
func (r *rewriter) resolve(v *ir.Value) *ir.Value {
	if n, ok := r.remap[v]; ok {
		return n
	}
	return v
}

// forward makes every use of old refer to the value standing in for repl.
func (r *rewriter) forward(old, repl *ir.Value) {
	r.remap[old] = r.resolve(repl)
}

// copyOp rebuilds op with remapped operands and appends it.
func (r *rewriter) copyOp(op *ir.Operation) error {
	operands := make([]*ir.Value, len(op.Operands))
	for i, v := range op.Operands {
		operands[i] = r.resolve(v)
	}
	nop, err := ir.NewOp(op.Opcode, op.Attrs, operands...)
	if err != nil {
		return err
	}
	r.region.Ops = append(r.region.Ops, nop)
	for i, res := range op.Results {
		r.remap[res] = nop.Results[i]
	}
	return nil
}

// flat returns true if no operation of the module carries nested regions.
// The shipped passes only rewrite flat modules; a module with regions is
// passed through untouched.
func flat(m *ir.Module) bool {
	for _, op := range m.Operations() {
		if len(op.Regions) > 0 {
			return false
		}
	}
	return true
}
