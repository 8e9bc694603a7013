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

package backend

import (
	"fmt"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/fault"
)

const (
	// ErrNoEntryPoint is returned by emitters handed a program without an
	// entry symbol.
	ErrNoEntryPoint = fault.Const("program has no entry point")
	// ErrNoInstructions is returned by emitters handed an empty program.
	ErrNoInstructions = fault.Const("program has no instructions")
)

// UnsupportedConstructError reports an opcode with no registered lowering
// for the requested target. The caller may recover by choosing another
// target or rewriting the input.
type UnsupportedConstructError struct {
	Op     ir.Op
	Target target.Architecture
}

// QualifiedOp returns the architecture-qualified opcode name,
// e.g. "amdgpu.softmax".
func (e *UnsupportedConstructError) QualifiedOp() string {
	return fmt.Sprintf("%v.%v", e.Target, e.Op)
}

func (e *UnsupportedConstructError) Error() string {
	return fmt.Sprintf("unsupported construct: no lowering registered for %s", e.QualifiedOp())
}

// LegalizationError reports an operation whose type cannot be made legal
// for the target ISA.
type LegalizationError struct {
	Op     ir.Op
	Type   ir.Type
	Target target.Architecture
	Reason string
}

func (e *LegalizationError) Error() string {
	return fmt.Sprintf("cannot legalize %v of type %v for %v: %s", e.Op, e.Type, e.Target, e.Reason)
}

// CodegenError carries the diagnostic of a failed emission verbatim.
type CodegenError struct {
	Target     target.Architecture
	Diagnostic string
}

func (e *CodegenError) Error() string {
	return fmt.Sprintf("%v codegen failed: %s", e.Target, e.Diagnostic)
}

// UnknownArchitectureError reports a target descriptor whose architecture
// family has no backend. This is a caller defect; backends are never
// substituted for one another.
type UnknownArchitectureError struct {
	Arch target.Architecture
}

func (e *UnknownArchitectureError) Error() string {
	return fmt.Sprintf("unknown architecture %v", e.Arch)
}
