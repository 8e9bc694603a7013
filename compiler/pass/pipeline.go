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

	"github.com/pkg/errors"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/core/log"
)

// Pipeline sequences passes over a module, short-circuiting on the first
// failure. Given the same module and pass list it always produces the
// same output module; nothing in the driver consults the clock, random
// state or unordered traversals. The kernel cache relies on this.
type Pipeline struct {
	passes []Pass
}

// NewPipeline returns a Pipeline running the given passes in order.
func NewPipeline(passes ...Pass) *Pipeline {
	return &Pipeline{passes: passes}
}

// Run applies each pass in sequence to m.
//
// After each pass the output module is re-verified: a pass that produces
// a malformed module is reported as a *InvariantViolationError naming the
// pass. Any other pass failure aborts the pipeline, wrapped with the name
// of the failing pass; alternate pass orderings are never attempted.
func (p *Pipeline) Run(ctx context.Context, m *ir.Module) (*ir.Module, error) {
	ctx = log.Enter(ctx, "pipeline")
	for _, pass := range p.passes {
		ctx := log.Enter(ctx, pass.Name())
		out, err := pass.Run(ctx, m)
		if err != nil {
			return nil, errors.Wrapf(err, "pass %q", pass.Name())
		}
		if err := out.Verify(); err != nil {
			return nil, &InvariantViolationError{Pass: pass.Name(), Cause: err}
		}
		if before, after := len(m.Operations()), len(out.Operations()); before != after {
			log.D(ctx, "%d ops in, %d ops out", before, after)
		}
		m = out
	}
	return m, nil
}
