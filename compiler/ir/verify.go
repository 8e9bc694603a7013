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

// Verify re-checks the structural well-formedness of the module:
// operand-before-use in a dominating region, opcode arity, result types
// consistent with the opcode signatures, and a ret terminating the root
// region. The first violation is returned as a *MalformedModuleError.
//
// Modules built by NewModule are already verified; the pipeline driver
// uses Verify to check the output of each pass.
func (m *Module) Verify() error {
	if m.root == nil || len(m.root.Ops) == 0 {
		return malformedf("", "module has no operations")
	}
	visible := map[*Value]bool{}
	if err := verifyRegion(m.root, visible); err != nil {
		return err
	}
	if last := m.root.Ops[len(m.root.Ops)-1]; last.Opcode != OpRet {
		return malformedf(last.Opcode, "root region must end with ret, ends with %v", last.Opcode)
	}
	return nil
}

func verifyRegion(r *Region, visible map[*Value]bool) error {
	defined := []*Value{}
	defer func() {
		// Values defined here go out of scope with the region.
		for _, v := range defined {
			delete(visible, v)
		}
	}()
	for i, op := range r.Ops {
		if op == nil {
			return malformedf("", "operation %d is nil", i)
		}
		sig, ok := signatures[op.Opcode]
		if !ok {
			return malformedf(op.Opcode, "unknown opcode %q", op.Opcode)
		}
		if sig.operands >= 0 && len(op.Operands) != sig.operands {
			return malformedf(op.Opcode, "%v expects %d operands, got %d", op.Opcode, sig.operands, len(op.Operands))
		}
		if sig.operands < 0 && len(op.Operands) == 0 {
			return malformedf(op.Opcode, "%v expects at least one operand", op.Opcode)
		}
		for n, v := range op.Operands {
			if v == nil {
				return malformedf(op.Opcode, "operand %d is nil", n)
			}
			if !visible[v] {
				return malformedf(op.Opcode, "operand %d references a value not yet defined in a dominating region", n)
			}
		}
		if op.Opcode == OpRet && i != len(r.Ops)-1 {
			return malformedf(OpRet, "ret must be the final operation of its region")
		}
		// Result types must agree with a fresh inference. A mismatch means
		// the operation was constructed or rewritten outside NewOp.
		types, err := sig.infer(op)
		if err != nil {
			return malformed(op.Opcode, err)
		}
		if len(types) != len(op.Results) {
			return malformedf(op.Opcode, "%v expects %d results, got %d", op.Opcode, len(types), len(op.Results))
		}
		for _, nested := range op.Regions {
			if nested == nil {
				return malformedf(op.Opcode, "nested region is nil")
			}
			if err := verifyRegion(nested, visible); err != nil {
				return err
			}
		}
		// Results become visible after the operation, not inside its own
		// nested regions.
		for n, t := range types {
			res := op.Results[n]
			if res == nil {
				return malformedf(op.Opcode, "result %d is nil", n)
			}
			if res.def != op {
				return malformedf(op.Opcode, "result %d is not owned by its operation", n)
			}
			if !res.typ.Equal(t) {
				return malformedf(op.Opcode, "result %d has type %v, signature requires %v", n, res.typ, t)
			}
			visible[res] = true
			defined = append(defined, res)
		}
	}
	return nil
}
