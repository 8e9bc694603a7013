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

// Package ir defines the target-independent module representation consumed
// by the compilation pipeline.
//
// A Module is an ordered tree of Operations grouped into Regions. Every
// operand of an operation must reference a value defined by an earlier
// operation in the same or a dominating region. Modules are verified when
// constructed and treated as immutable afterwards; passes build new
// Modules instead of mutating in place.
package ir

import (
	"sync"

	"github.com/quint-lang/tactics/core/data/id"
)

// Value is a typed SSA value produced by an operation.
type Value struct {
	def *Operation
	n   int
	typ Type
}

// Type returns the type of the value.
func (v *Value) Type() Type { return v.typ }

// Def returns the operation that produced the value.
func (v *Value) Def() *Operation { return v.def }

// ResultIndex returns which result of the defining operation this value is.
func (v *Value) ResultIndex() int { return v.n }

// Operation is a single operation in a region.
// The fields are exported for traversal but must not be mutated once the
// operation is part of a constructed Module.
type Operation struct {
	Opcode   Op
	Operands []*Value
	Results  []*Value
	Attrs    Attributes
	Regions  []*Region
}

// Region is an ordered sequence of operations with its own value namespace.
type Region struct {
	Ops []*Operation
}

// append adds op to the region and returns it, for construction helpers.
func (r *Region) append(op *Operation) *Operation {
	r.Ops = append(r.Ops, op)
	return op
}

// NewOp builds a single operation, inferring its result types from the
// opcode signature. The operands must already be constructed. Structural
// problems (unknown opcode, arity, operand type mismatches) are reported
// as a *MalformedModuleError.
func NewOp(opcode Op, attrs Attributes, operands ...*Value) (*Operation, error) {
	sig, ok := signatures[opcode]
	if !ok {
		return nil, malformedf(opcode, "unknown opcode %q", opcode)
	}
	if sig.operands >= 0 && len(operands) != sig.operands {
		return nil, malformedf(opcode, "%v expects %d operands, got %d", opcode, sig.operands, len(operands))
	}
	if sig.operands < 0 && len(operands) == 0 {
		return nil, malformedf(opcode, "%v expects at least one operand", opcode)
	}
	for i, v := range operands {
		if v == nil {
			return nil, malformedf(opcode, "%v operand %d is nil", opcode, i)
		}
	}
	op := &Operation{
		Opcode:   opcode,
		Operands: operands,
		Attrs:    attrs.clone(),
	}
	types, err := sig.infer(op)
	if err != nil {
		return nil, malformed(opcode, err)
	}
	op.Results = make([]*Value, len(types))
	for i, t := range types {
		op.Results[i] = &Value{def: op, n: i, typ: t}
	}
	return op, nil
}

// Module is an immutable, verified program.
type Module struct {
	name string
	root *Region

	fpOnce sync.Once
	fp     id.ID
}

// NewModule verifies root and wraps it as a Module named name.
// The name becomes the entry point symbol of the compiled kernel.
// Verification failures are reported as a *MalformedModuleError describing
// the first violation found.
func NewModule(name string, root *Region) (*Module, error) {
	if name == "" {
		name = "main"
	}
	m := &Module{name: name, root: root}
	if err := m.Verify(); err != nil {
		return nil, err
	}
	return m, nil
}

// Name returns the module name.
func (m *Module) Name() string { return m.name }

// Root returns the root region. The returned region must not be mutated.
func (m *Module) Root() *Region { return m.root }

// Operations returns the operations of the root region.
func (m *Module) Operations() []*Operation { return m.root.Ops }

// Params returns the param operations of the root region in order.
func (m *Module) Params() []*Operation {
	out := []*Operation{}
	for _, op := range m.root.Ops {
		if op.Opcode == OpParam {
			out = append(out, op)
		}
	}
	return out
}

// Ret returns the terminating ret operation of the root region.
func (m *Module) Ret() *Operation {
	return m.root.Ops[len(m.root.Ops)-1]
}
