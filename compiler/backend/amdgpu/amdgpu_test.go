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

package amdgpu

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

func gfx906(features ...string) target.Descriptor {
	return target.New(target.AMDGPU, "gfx906", features...)
}

func vecAdd(t *testing.T, kind ir.Kind) *ir.Module {
	b := ir.NewBuilder("vec_add")
	vec := ir.Tensor(kind, 1024)
	x := b.Param(vec)
	y := b.Param(vec)
	sum := b.Append(ir.OpAdd, nil, x, y)
	b.Return(sum)
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestLowerVecAdd(t *testing.T) {
	ctx := log.Testing(t)
	a, err := New().Lower(ctx, vecAdd(t, ir.F32), gfx906())
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, "vec_add", a.Entry())
	require.True(t, len(a.Code()) > 4)
	assert.Equal(t, Magic[:], a.Code()[:4])

	res := a.Resources()
	assert.Equal(t, 256, res.MaxThreadsPerBlock)
	assert.Equal(t, [3]int{1024, 1024, 1024}, res.BlockDimLimit)
	assert.NotZero(t, res.Registers)
}

func TestLowerIsDeterministic(t *testing.T) {
	ctx := log.Testing(t)
	m := vecAdd(t, ir.F32)
	first, err := New().Lower(ctx, m, gfx906())
	require.NoError(t, err)
	second, err := New().Lower(ctx, m, gfx906())
	require.NoError(t, err)
	assert.Equal(t, first.Code(), second.Code())
}

// Softmax is the one dialect opcode this backend does not lower; every
// other opcode must stay covered.
func TestTranslationCoverage(t *testing.T) {
	for _, op := range ir.Opcodes() {
		if op == ir.OpSoftmax {
			assert.NotContains(t, translations, op)
			continue
		}
		assert.Contains(t, translations, op, "no AMDGPU lowering for %v", op)
	}
}

func TestSoftmaxIsUnsupported(t *testing.T) {
	ctx := log.Testing(t)
	b := ir.NewBuilder("softmax_rows")
	x := b.Param(ir.Tensor(ir.F32, 4, 128))
	sm := b.Append(ir.OpSoftmax, ir.Attributes{"axis": ir.IntAttr(1)}, x)
	b.Return(sm)
	m, err := b.Build()
	require.NoError(t, err)

	_, err = New().Lower(ctx, m, gfx906())
	var unsupported *backend.UnsupportedConstructError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, ir.OpSoftmax, unsupported.Op)
	assert.Equal(t, "amdgpu.softmax", unsupported.QualifiedOp())
}

func TestHalfPrecisionNeedsFeature(t *testing.T) {
	ctx := log.Testing(t)
	m := vecAdd(t, ir.F16)

	_, err := New().Lower(ctx, m, gfx906())
	var legalErr *backend.LegalizationError
	require.ErrorAs(t, err, &legalErr)
	assert.Equal(t, target.AMDGPU, legalErr.Target)
	assert.Equal(t, ir.F16, legalErr.Type.Kind)

	a, err := New().Lower(ctx, m, gfx906(FeatureFP16))
	require.NoError(t, err)
	assert.NotEmpty(t, a.Code())
}

func TestSmallIntsWidenTo32Bits(t *testing.T) {
	l := newLowerer(vecAdd(t, ir.I8), gfx906())
	require.NoError(t, l.translate())
	require.NoError(t, l.legalize())

	opcodes := map[string]bool{}
	for _, inst := range l.prog.Instructions {
		opcodes[inst.Opcode] = true
		for _, r := range append(inst.Dst, inst.Srcs...) {
			assert.NotEqual(t, "i8", r.Class)
		}
	}
	assert.True(t, opcodes["v_add_i32"], "widened add missing, got %v", opcodes)
	assert.False(t, opcodes["v_add_i8"])
	// Memory ops keep their natural width.
	assert.True(t, opcodes["global_load_b8"])
}

func TestSumReservesSharedMemory(t *testing.T) {
	ctx := log.Testing(t)
	b := ir.NewBuilder("row_sum")
	x := b.Param(ir.Tensor(ir.F32, 4, 128))
	s := b.Append(ir.OpSum, ir.Attributes{"axis": ir.IntAttr(1)}, x)
	b.Return(s)
	m, err := b.Build()
	require.NoError(t, err)

	a, err := New().Lower(ctx, m, gfx906())
	require.NoError(t, err)
	// One LDS slot per lane of a wavefront.
	assert.Equal(t, 64*4, a.Resources().SharedMemoryBytes)
}

type failingEmitter struct{ err error }

func (e failingEmitter) Emit(context.Context, *backend.Program) ([]byte, error) {
	return nil, e.err
}

func TestEmitterFailureBecomesCodegenError(t *testing.T) {
	ctx := log.Testing(t)
	boom := errors.New("lld: undefined symbol")
	b := New(WithEmitter(failingEmitter{err: boom}))

	_, err := b.Lower(ctx, vecAdd(t, ir.F32), gfx906())
	var cgErr *backend.CodegenError
	require.ErrorAs(t, err, &cgErr)
	assert.Equal(t, target.AMDGPU, cgErr.Target)
	assert.Contains(t, cgErr.Diagnostic, "lld")
}

func TestKernelSymbol(t *testing.T) {
	assert.Equal(t, "vec_add", kernelSymbol("vec_add"))
	assert.Equal(t, "my_kernel_v2", kernelSymbol("my kernel.v2"))
	assert.Equal(t, "_2dconv", kernelSymbol("2dconv"))
}
