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

// DeadCode returns a pass that removes pure operations whose results are
// never used. Parameters are kept even when unused so that the kernel's
// argument layout is preserved.
func DeadCode() Pass {
	return New("deadcode", runDeadCode)
}

func runDeadCode(ctx context.Context, m *ir.Module) (*ir.Module, error) {
	if !flat(m) {
		return m, nil
	}
	ops := m.Operations()
	live := map[*ir.Value]bool{}
	keep := map[*ir.Operation]bool{}
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		needed := !op.Opcode.Pure() || op.Opcode == ir.OpParam
		for _, res := range op.Results {
			if live[res] {
				needed = true
			}
		}
		if !needed {
			continue
		}
		keep[op] = true
		for _, v := range op.Operands {
			live[v] = true
		}
	}
	if len(keep) == len(ops) {
		return m, nil
	}
	r := newRewriter()
	for _, op := range ops {
		if !keep[op] {
			continue
		}
		if err := r.copyOp(op); err != nil {
			return nil, err
		}
	}
	return ir.NewModule(m.Name(), r.region)
}
