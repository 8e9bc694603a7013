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

// Package nvptx lowers modules to PTX for NVIDIA GPUs.
package nvptx

import (
	"context"
	"strconv"
	"strings"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

// Backend is the NVPTX lowering backend. The zero value is not usable;
// construct with New.
type Backend struct {
	emitter backend.Emitter
}

// Option configures a Backend.
type Option func(*Backend)

// WithEmitter replaces the default PTX emitter, e.g. with a real
// ptxas-backed emitter or a test fake.
func WithEmitter(e backend.Emitter) Option {
	return func(b *Backend) { b.emitter = e }
}

// New returns an NVPTX backend.
func New(opts ...Option) *Backend {
	b := &Backend{emitter: Emitter{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Architecture returns target.NVPTX.
func (b *Backend) Architecture() target.Architecture { return target.NVPTX }

// Lower translates m into PTX instructions, legalizes them for d's chip
// and emits the kernel artifact.
//
// All lowering state lives in the per-call lowerer, so concurrent Lower
// calls never interfere.
func (b *Backend) Lower(ctx context.Context, m *ir.Module, d target.Descriptor) (*kernel.Artifact, error) {
	ctx = log.V{"target": d}.Bind(ctx)

	l := newLowerer(m, d)
	if err := l.translate(); err != nil {
		return nil, err
	}
	if err := l.legalize(); err != nil {
		return nil, err
	}

	code, err := b.emitter.Emit(ctx, l.prog)
	if err != nil {
		return nil, &backend.CodegenError{Target: target.NVPTX, Diagnostic: err.Error()}
	}

	log.D(ctx, "emitted %d bytes for %v", len(code), l.prog.Entry)
	return kernel.NewArtifact(code, l.prog.Entry, resources(l.prog, d)), nil
}

// resources derives the resource-requirement metadata from the lowered
// program, not from the emitted machine code.
func resources(p *backend.Program, d target.Descriptor) kernel.ResourceInfo {
	return kernel.ResourceInfo{
		Registers:          p.Registers,
		SharedMemoryBytes:  p.SharedMemoryBytes,
		MaxThreadsPerBlock: 1024,
		BlockDimLimit:      [3]int{1024, 1024, 64},
	}
}

// chipSM returns the numeric compute capability of chips named "sm_NN",
// or 0 if the name has another form.
func chipSM(chip string) int {
	if !strings.HasPrefix(chip, "sm_") {
		return 0
	}
	n, err := strconv.Atoi(chip[len("sm_"):])
	if err != nil {
		return 0
	}
	return n
}

// mangle turns a module name into a PTX entry symbol.
func mangle(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 || (out[0] >= '0' && out[0] <= '9') {
		return "_" + string(out)
	}
	return string(out)
}

func immFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func immInt(v int64) string     { return strconv.FormatInt(v, 10) }
