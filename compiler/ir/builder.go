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

// Builder incrementally constructs a flat module. It records the first
// construction error and makes every later call a no-op, so call sites can
// chain appends and check the error once at Build.
type Builder struct {
	name   string
	region *Region
	params int
	err    error
}

// NewBuilder returns a Builder for a module named name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, region: &Region{}}
}

// Err returns the first construction error, if any.
func (b *Builder) Err() error { return b.err }

// Param appends a kernel parameter of type t and returns its value.
func (b *Builder) Param(t Type) *Value {
	return b.Append(OpParam, Attributes{
		"index": IntAttr(int64(b.params)),
		"type":  TypeAttr(t),
	})
}

// ConstFloat appends a splat float constant of type t.
func (b *Builder) ConstFloat(t Type, v float64) *Value {
	return b.Append(OpConst, Attributes{"type": TypeAttr(t), "value": FloatAttr(v)})
}

// ConstInt appends a splat integer constant of type t.
func (b *Builder) ConstInt(t Type, v int64) *Value {
	return b.Append(OpConst, Attributes{"type": TypeAttr(t), "value": IntAttr(v)})
}

// Append constructs an operation and appends it to the module, returning
// its first result (nil for result-less opcodes or after an error).
func (b *Builder) Append(opcode Op, attrs Attributes, operands ...*Value) *Value {
	if b.err != nil {
		return nil
	}
	op, err := NewOp(opcode, attrs, operands...)
	if err != nil {
		b.err = err
		return nil
	}
	if opcode == OpParam {
		b.params++
	}
	b.region.append(op)
	if len(op.Results) == 0 {
		return nil
	}
	return op.Results[0]
}

// Return appends the terminating ret operation.
func (b *Builder) Return(values ...*Value) {
	b.Append(OpRet, nil, values...)
}

// Build verifies the accumulated operations and returns the module.
func (b *Builder) Build() (*Module, error) {
	if b.err != nil {
		return nil, b.err
	}
	return NewModule(b.name, b.region)
}
