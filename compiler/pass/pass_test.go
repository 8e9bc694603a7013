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

package pass_test

import (
	"context"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/pass"
	"github.com/quint-lang/tactics/core/log"
)

// foldable builds relu(x + 0) with an extra unused mul.
func foldable(t *testing.T) *ir.Module {
	b := ir.NewBuilder("foldable")
	x := b.Param(ir.Tensor(ir.F32, 8))
	zero := b.ConstFloat(ir.Tensor(ir.F32, 8), 0)
	sum := b.Append(ir.OpAdd, nil, x, zero)
	b.Append(ir.OpMul, nil, sum, sum) // unused
	b.Return(b.Append(ir.OpRelu, nil, sum))
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func TestFoldIdentities(t *testing.T) {
	ctx := log.Testing(t)
	m, err := pass.NewPipeline(pass.FoldIdentities()).Run(ctx, foldable(t))
	require.NoError(t, err)
	for _, op := range m.Operations() {
		assert.NotEqual(t, ir.OpAdd, op.Opcode, "x+0 should have been folded")
	}
}

func TestDeadCodeSweep(t *testing.T) {
	ctx := log.Testing(t)
	m, err := pass.NewPipeline(pass.Default()...).Run(ctx, foldable(t))
	require.NoError(t, err)

	// After folding and sweeping only param, relu and ret remain.
	opcodes := []ir.Op{}
	for _, op := range m.Operations() {
		opcodes = append(opcodes, op.Opcode)
	}
	assert.Equal(t, []ir.Op{ir.OpParam, ir.OpRelu, ir.OpRet}, opcodes)
}

func TestDeadCodeKeepsUnusedParams(t *testing.T) {
	ctx := log.Testing(t)
	b := ir.NewBuilder("unused-param")
	x := b.Param(ir.Tensor(ir.F32, 4))
	b.Param(ir.Tensor(ir.F32, 4)) // never used
	b.Return(b.Append(ir.OpNeg, nil, x))
	m, err := b.Build()
	require.NoError(t, err)

	out, err := pass.NewPipeline(pass.DeadCode()).Run(ctx, m)
	require.NoError(t, err)
	assert.Len(t, out.Params(), 2)
}

func TestPipelineDeterminism(t *testing.T) {
	ctx := log.Testing(t)
	run := func() *ir.Module {
		out, err := pass.NewPipeline(pass.Default()...).Run(ctx, foldable(t))
		require.NoError(t, err)
		return out
	}
	a, b := run(), run()
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, a.String(), b.String())
}

func TestPipelineDoesNotMutateInput(t *testing.T) {
	ctx := log.Testing(t)
	m := foldable(t)
	before := m.Fingerprint()
	dump := m.String()
	_, err := pass.NewPipeline(pass.Default()...).Run(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, before, m.Fingerprint())
	assert.Equal(t, dump, m.String())
}

func TestPipelineAttributesFailingPass(t *testing.T) {
	ctx := log.Testing(t)
	boom := pkgerrors.New("cannot handle construct")
	failing := pass.New("failing", func(context.Context, *ir.Module) (*ir.Module, error) {
		return nil, boom
	})
	_, err := pass.NewPipeline(pass.FoldIdentities(), failing).Run(ctx, foldable(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `pass "failing"`)
	assert.Same(t, boom, pkgerrors.Cause(err))
}

func TestPipelineDetectsInvariantViolation(t *testing.T) {
	ctx := log.Testing(t)
	// A buggy pass that corrupts the module in place.
	corrupting := pass.New("corrupting", func(_ context.Context, m *ir.Module) (*ir.Module, error) {
		m.Ret().Operands[0] = &ir.Value{}
		return m, nil
	})
	_, err := pass.NewPipeline(corrupting).Run(ctx, foldable(t))
	require.Error(t, err)
	var violation *pass.InvariantViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "corrupting", violation.Pass)
	var malformed *ir.MalformedModuleError
	assert.ErrorAs(t, violation.Cause, &malformed)
}

func TestEmptyPipelineIsIdentity(t *testing.T) {
	ctx := log.Testing(t)
	m := foldable(t)
	out, err := pass.NewPipeline().Run(ctx, m)
	require.NoError(t, err)
	assert.Same(t, m, out)
}
