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

// Package amdgpu lowers modules to GCN code objects for AMD GPUs.
package amdgpu

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

// FeatureFP16 enables native half precision arithmetic. Without it f16
// modules are rejected during legalization.
const FeatureFP16 = "gfx9-fp16"

// Backend is the AMDGPU lowering backend. Construct with New.
type Backend struct {
	emitter backend.Emitter
}

// Option configures a Backend.
type Option func(*Backend)

// WithEmitter replaces the default code-object emitter.
func WithEmitter(e backend.Emitter) Option {
	return func(b *Backend) { b.emitter = e }
}

// New returns an AMDGPU backend.
func New(opts ...Option) *Backend {
	b := &Backend{emitter: Emitter{}}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Architecture returns target.AMDGPU.
func (b *Backend) Architecture() target.Architecture { return target.AMDGPU }

// Lower translates m into GCN instructions, legalizes them for d and
// emits the kernel code object.
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
		return nil, &backend.CodegenError{Target: target.AMDGPU, Diagnostic: err.Error()}
	}

	log.D(ctx, "emitted %d bytes for %v", len(code), l.prog.Entry)
	return kernel.NewArtifact(code, l.prog.Entry, resources(l.prog)), nil
}

func resources(p *backend.Program) kernel.ResourceInfo {
	return kernel.ResourceInfo{
		Registers:         p.Registers,
		SharedMemoryBytes: p.SharedMemoryBytes,
		// Wavefront-friendly default; larger groups spill occupancy.
		MaxThreadsPerBlock: 256,
		BlockDimLimit:      [3]int{1024, 1024, 1024},
	}
}

// kernelSymbol turns a module name into a code-object entry symbol.
func kernelSymbol(name string) string {
	sym := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return '_'
	}, name)
	if sym == "" || (sym[0] >= '0' && sym[0] <= '9') {
		sym = "_" + sym
	}
	return sym
}

func immFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
func immInt(v int64) string     { return strconv.FormatInt(v, 10) }
