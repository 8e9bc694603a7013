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

// Package backend defines the contract between the compiler driver and
// the target lowering backends.
package backend

import (
	"context"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/target"
)

// Backend lowers a target-independent module to machine code for one
// architecture family.
//
// Implementations must be re-entrant: all lowering state lives in
// per-invocation values so that concurrent lowerings, including lowerings
// for different architectures, never share mutable state.
type Backend interface {
	// Architecture returns the family this backend compiles for.
	Architecture() target.Architecture
	// Lower translates m, legalizes it for d and emits a kernel artifact.
	Lower(ctx context.Context, m *ir.Module, d target.Descriptor) (*kernel.Artifact, error)
}

// Emitter is the machine-code emission capability: instruction selection,
// scheduling and register allocation behind a narrow contract. Given a
// legalized lowered program it returns machine code bytes, or a diagnostic
// that the backend surfaces verbatim as a *CodegenError.
//
// Stateless emitters may be shared; stateful ones must be used by at most
// one lowering at a time (pool them per invocation).
type Emitter interface {
	Emit(ctx context.Context, p *Program) ([]byte, error)
}
