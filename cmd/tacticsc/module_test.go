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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

const vecAddJSON = `{
	"name": "vec_add",
	"ops": [
		{"op": "param", "type": {"kind": "f32", "dims": [1024]}},
		{"op": "param", "type": {"kind": "f32", "dims": [1024]}},
		{"op": "add", "args": [0, 1]},
		{"op": "ret", "args": [2]}
	]
}`

func TestParseModule(t *testing.T) {
	m, err := parseModule([]byte(vecAddJSON))
	require.NoError(t, err)
	assert.Equal(t, "vec_add", m.Name())
	assert.Len(t, m.Operations(), 4)
	assert.Len(t, m.Params(), 2)
}

func TestParseModuleWithAttrs(t *testing.T) {
	m, err := parseModule([]byte(`{
		"name": "row_sum",
		"ops": [
			{"op": "param", "type": {"kind": "f32", "dims": [4, 128]}},
			{"op": "sum", "args": [0], "attrs": {"axis": 1}},
			{"op": "ret", "args": [1]}
		]
	}`))
	require.NoError(t, err)
	sum := m.Operations()[1]
	assert.Equal(t, ir.OpSum, sum.Opcode)
	axis, ok := sum.Attrs["axis"].Int()
	require.True(t, ok)
	assert.Equal(t, int64(1), axis)
	// sum(4x128, axis 1) leaves a 4-vector.
	assert.Equal(t, ir.Tensor(ir.F32, 4), sum.Results[0].Type())
}

func TestParseModuleConst(t *testing.T) {
	m, err := parseModule([]byte(`{
		"name": "shift",
		"ops": [
			{"op": "param", "type": {"kind": "f32", "dims": [8]}},
			{"op": "const", "type": {"kind": "f32", "dims": [8]}, "value": 0.5},
			{"op": "add", "args": [0, 1]},
			{"op": "ret", "args": [2]}
		]
	}`))
	require.NoError(t, err)
	v, ok := m.Operations()[1].Attrs["value"].Float()
	require.True(t, ok)
	assert.Equal(t, 0.5, v)
}

func TestParseModuleRejectsBadReferences(t *testing.T) {
	_, err := parseModule([]byte(`{
		"name": "bad",
		"ops": [
			{"op": "param", "type": {"kind": "f32", "dims": [8]}},
			{"op": "add", "args": [0, 5]},
			{"op": "ret", "args": [1]}
		]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid operand")
}

func TestParseModuleRejectsMalformedModules(t *testing.T) {
	_, err := parseModule([]byte(`{
		"name": "bad",
		"ops": [
			{"op": "param", "type": {"kind": "f32", "dims": [8]}},
			{"op": "param", "type": {"kind": "f32", "dims": [16]}},
			{"op": "add", "args": [0, 1]},
			{"op": "ret", "args": [2]}
		]
	}`))
	require.Error(t, err)
	// The builder's structural diagnosis must survive, not be masked by
	// a generic bad-reference error from the later op.
	var malformed *ir.MalformedModuleError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Reason, "mismatched types")
}

func TestParseModuleRejectsUnknownKind(t *testing.T) {
	_, err := parseModule([]byte(`{
		"name": "bad",
		"ops": [{"op": "param", "type": {"kind": "f128", "dims": [8]}}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "f128")
}

func TestParseTarget(t *testing.T) {
	d, err := parseTarget("nvptx/sm_70")
	require.NoError(t, err)
	assert.Equal(t, target.NVPTX, d.Architecture())
	assert.Equal(t, "sm_70", d.Chip())

	d, err = parseTarget("rocm/gfx906+gfx9-fp16")
	require.NoError(t, err)
	assert.Equal(t, target.AMDGPU, d.Architecture())
	assert.True(t, d.HasFeature("gfx9-fp16"))

	_, err = parseTarget("sm_70")
	assert.Error(t, err)
	_, err = parseTarget("riscv/rv64")
	assert.Error(t, err)
}
