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
	"io"

	"github.com/quint-lang/tactics/core/data/id"
)

// Fingerprint returns a stable structural hash of the module.
//
// Two modules fingerprint identically iff they are structurally isomorphic
// and share a name: same operation sequence, operand topology, result types
// and attributes. The name participates deliberately, because it becomes
// the compiled entry symbol; a name-blind fingerprint would let the kernel
// cache serve an artifact whose entry point differs from the one requested.
// The hash walks values by definition order, so it never depends on pointer
// identity or map traversal order, and is stable across process runs.
func (m *Module) Fingerprint() id.ID {
	m.fpOnce.Do(func() {
		m.fp, _ = id.Hash(func(w io.Writer) error {
			fmt.Fprintf(w, "module:%s;", m.name)
			e := &fpEncoder{w: w, number: map[*Value]int{}}
			e.region(m.root)
			return nil
		})
	})
	return m.fp
}

type fpEncoder struct {
	w      io.Writer
	number map[*Value]int
	next   int
}

func (e *fpEncoder) region(r *Region) {
	fmt.Fprintf(e.w, "region{")
	for _, op := range r.Ops {
		e.op(op)
	}
	fmt.Fprintf(e.w, "}")
}

func (e *fpEncoder) op(op *Operation) {
	fmt.Fprintf(e.w, "%s(", op.Opcode)
	for _, v := range op.Operands {
		fmt.Fprintf(e.w, "%d,", e.number[v])
	}
	fmt.Fprintf(e.w, ")")
	for _, key := range op.Attrs.Keys() {
		fmt.Fprintf(e.w, "@%s=", key)
		op.Attrs[key].encode(e.w)
	}
	for _, nested := range op.Regions {
		e.region(nested)
	}
	for _, res := range op.Results {
		e.number[res] = e.next
		e.next++
		fmt.Fprintf(e.w, ">%s", res.typ)
	}
	fmt.Fprintf(e.w, ";")
}
