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

package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/quint-lang/tactics/compiler"
	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

func sm70() target.Descriptor { return target.New(target.NVPTX, "sm_70") }
func gfx906() target.Descriptor { return target.New(target.AMDGPU, "gfx906") }

// reluKernel returns relu(x + 0): the add is an identity the pipeline
// folds away before lowering.
func reluKernel(t *testing.T) *ir.Module {
	b := ir.NewBuilder("relu_kernel")
	vec := ir.Tensor(ir.F32, 1024)
	x := b.Param(vec)
	zero := b.ConstFloat(vec, 0)
	sum := b.Append(ir.OpAdd, nil, x, zero)
	out := b.Append(ir.OpRelu, nil, sum)
	b.Return(out)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func softmaxKernel(t *testing.T) *ir.Module {
	b := ir.NewBuilder("softmax_kernel")
	x := b.Param(ir.Tensor(ir.F32, 4, 128))
	sm := b.Append(ir.OpSoftmax, ir.Attributes{"axis": ir.IntAttr(1)}, x)
	b.Return(sm)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestCompileCachesArtifacts(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)
	m := reluKernel(t)

	first, err := c.Compile(ctx, m, sm70())
	require.NoError(t, err)
	second, err := c.Compile(ctx, m, sm70())
	require.NoError(t, err)

	assert.Same(t, first, second)
	stats := c.CacheStats()
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 1, stats.Hits)

	first.Release()
	second.Release()
	// The cache still holds its reference.
	assert.True(t, first.Alive())
}

func TestPipelineRunsBeforeLowering(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)

	a, err := c.Compile(ctx, reluKernel(t), sm70())
	require.NoError(t, err)
	defer a.Release()

	// The x+0 identity is folded and swept, so no add survives to PTX.
	ptx := string(a.Code())
	assert.Contains(t, ptx, "max.f32")
	assert.NotContains(t, ptx, "add.f32")
}

func TestCompileMultipleTargetsConcurrently(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)
	m := reluKernel(t)

	var forNV, forAMD *kernel.Artifact
	grp := errgroup.Group{}
	grp.Go(func() error {
		a, err := c.Compile(ctx, m, sm70())
		forNV = a
		return err
	})
	grp.Go(func() error {
		a, err := c.Compile(ctx, m, gfx906())
		forAMD = a
		return err
	})
	require.NoError(t, grp.Wait())
	defer forNV.Release()
	defer forAMD.Release()

	// One module, two targets, two independent artifacts.
	assert.NotEqual(t, forNV.Code(), forAMD.Code())
	assert.Equal(t, 2, c.CacheStats().Misses)
}

func TestUnsupportedConstructIsTargetSpecific(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)
	m := softmaxKernel(t)

	a, err := c.Compile(ctx, m, sm70())
	require.NoError(t, err)
	defer a.Release()

	_, err = c.Compile(ctx, m, gfx906())
	var unsupported *backend.UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "amdgpu.softmax", unsupported.QualifiedOp())
}

func TestFailuresAreCachedUntilEvicted(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)
	m := softmaxKernel(t)

	_, first := c.Compile(ctx, m, gfx906())
	require.Error(t, first)
	_, second := c.Compile(ctx, m, gfx906())
	require.Error(t, second)

	// The second request reports the first failure without recompiling.
	assert.Same(t, first, second)
	assert.Equal(t, 1, c.CacheStats().Failures)

	require.True(t, c.Evict(m, gfx906()))
	_, third := c.Compile(ctx, m, gfx906())
	require.Error(t, third)
	assert.Equal(t, 2, c.CacheStats().Failures)
}

func TestUnknownArchitectureHasNoBackend(t *testing.T) {
	ctx := log.Testing(t)
	c := compiler.New(ctx)

	_, err := c.Compile(ctx, reluKernel(t), target.New(target.UnknownArchitecture, "none"))
	var unknown *backend.UnknownArchitectureError
	require.ErrorAs(t, err, &unknown)

	_, err = compiler.Select(target.New(target.UnknownArchitecture, "none"))
	require.ErrorAs(t, err, &unknown)
}

func TestSelect(t *testing.T) {
	b, err := compiler.Select(sm70())
	require.NoError(t, err)
	assert.Equal(t, target.NVPTX, b.Architecture())

	b, err = compiler.Select(gfx906())
	require.NoError(t, err)
	assert.Equal(t, target.AMDGPU, b.Architecture())
}

func TestMalformedModuleNeverReachesCompile(t *testing.T) {
	b := ir.NewBuilder("bad")
	x := b.Param(ir.Tensor(ir.F32, 8))
	y := b.Param(ir.Tensor(ir.F32, 16))
	b.Append(ir.OpAdd, nil, x, y)
	_, err := b.Build()

	var malformed *ir.MalformedModuleError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, ir.OpAdd, malformed.Opcode)
}
