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

// Package compiler is the kernel compiler driver: it runs the
// target-independent pass pipeline over a module, dispatches to the
// lowering backend for the requested architecture and caches the
// compiled artifacts by (module fingerprint, target) key.
package compiler

import (
	"context"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/backend/amdgpu"
	"github.com/quint-lang/tactics/compiler/backend/nvptx"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/pass"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

// Select returns the lowering backend for d's architecture family.
// Backends are never substituted: an architecture without a backend is
// an *backend.UnknownArchitectureError, even if another backend could
// nominally accept the module.
func Select(d target.Descriptor) (backend.Backend, error) {
	switch d.Architecture() {
	case target.NVPTX:
		return nvptx.New(), nil
	case target.AMDGPU:
		return amdgpu.New(), nil
	}
	return nil, &backend.UnknownArchitectureError{Arch: d.Architecture()}
}

// Compiler compiles modules to kernel artifacts for any supported
// target. It is safe for concurrent use; compilations for distinct
// (module, target) keys proceed in parallel while requests for the same
// key share a single compilation.
type Compiler struct {
	cache    *kernel.Cache
	pipeline *pass.Pipeline
	backends map[target.Architecture]backend.Backend
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPasses replaces the default pass list.
func WithPasses(passes ...pass.Pass) Option {
	return func(c *Compiler) { c.pipeline = pass.NewPipeline(passes...) }
}

// WithBackend registers b, replacing the stock backend for its
// architecture. Useful for wiring emitters backed by real toolchains.
func WithBackend(b backend.Backend) Option {
	return func(c *Compiler) { c.backends[b.Architecture()] = b }
}

// New returns a Compiler with the default pass list and the stock
// backends. Compilations run under ctx; see kernel.NewCache.
func New(ctx context.Context, opts ...Option) *Compiler {
	c := &Compiler{
		cache:    kernel.NewCache(ctx),
		pipeline: pass.NewPipeline(pass.Default()...),
		backends: map[target.Architecture]backend.Backend{
			target.NVPTX:  nvptx.New(),
			target.AMDGPU: amdgpu.New(),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile returns the artifact for m compiled against d, reusing a
// cached artifact when one exists. The returned artifact carries a
// reference owned by the caller; release it when done.
//
// The cache key is computed from the module as handed in. The pass
// pipeline runs inside the cached compilation, which is sound because
// passes are deterministic: one input module can never produce two
// different artifacts for the same target.
func (c *Compiler) Compile(ctx context.Context, m *ir.Module, d target.Descriptor) (*kernel.Artifact, error) {
	b, found := c.backends[d.Architecture()]
	if !found {
		return nil, &backend.UnknownArchitectureError{Arch: d.Architecture()}
	}

	return c.cache.GetOrCompile(ctx, m, d, func(ctx context.Context) (*kernel.Artifact, error) {
		optimized, err := c.pipeline.Run(ctx, m)
		if err != nil {
			return nil, err
		}
		log.D(ctx, "lowering %v for %v", optimized.Name(), d)
		return b.Lower(ctx, optimized, d)
	})
}

// CacheStats returns a snapshot of the kernel cache counters.
func (c *Compiler) CacheStats() kernel.Stats { return c.cache.Stats() }

// Evict drops the cached artifact for (m, d), allowing a retry after a
// failed compilation. It returns true if an entry was evicted.
func (c *Compiler) Evict(m *ir.Module, d target.Descriptor) bool {
	return c.cache.Evict(kernel.Key(m, d))
}

// ClearCache evicts every non-pending cache entry.
func (c *Compiler) ClearCache() { c.cache.Clear() }
