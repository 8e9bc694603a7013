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

// Package pass implements target-independent module transformations and
// the pipeline driver that sequences them.
package pass

import (
	"context"

	"github.com/quint-lang/tactics/compiler/ir"
)

// Pass is a named, pure transformation from module to module.
// A pass must not retain state between calls or mutate its input; it
// builds and returns a new module (possibly the input itself when it has
// nothing to change).
type Pass interface {
	// Name identifies the pass in diagnostics.
	Name() string
	// Run applies the pass to m.
	Run(ctx context.Context, m *ir.Module) (*ir.Module, error)
}

type pass struct {
	name string
	run  func(ctx context.Context, m *ir.Module) (*ir.Module, error)
}

func (p pass) Name() string { return p.name }
func (p pass) Run(ctx context.Context, m *ir.Module) (*ir.Module, error) {
	return p.run(ctx, m)
}

// New returns a Pass with the given name and behavior.
func New(name string, run func(ctx context.Context, m *ir.Module) (*ir.Module, error)) Pass {
	return pass{name, run}
}

// Verify returns a pass that re-checks the module invariants without
// transforming it. Useful as a checkpoint between third-party passes.
func Verify() Pass {
	return New("verify", func(ctx context.Context, m *ir.Module) (*ir.Module, error) {
		if err := m.Verify(); err != nil {
			return nil, err
		}
		return m, nil
	})
}

// Default returns the standard target-independent pass list.
func Default() []Pass {
	return []Pass{FoldIdentities(), DeadCode()}
}
