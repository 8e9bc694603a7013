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

package target_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quint-lang/tactics/compiler/target"
)

func TestCanonicalKeyIsPure(t *testing.T) {
	a := target.New(target.NVPTX, "sm_70", "fast-math", "tensor-cores")
	b := target.New(target.NVPTX, "sm_70", "tensor-cores", "fast-math", "fast-math")
	assert.Equal(t, a.CanonicalKey(), b.CanonicalKey())
	assert.Equal(t, "nvptx/sm_70+fast-math+tensor-cores", a.CanonicalKey())
}

func TestCanonicalKeyNoFeatures(t *testing.T) {
	d := target.New(target.AMDGPU, "gfx90a")
	assert.Equal(t, "amdgpu/gfx90a", d.CanonicalKey())
}

func TestKeysDifferAcrossTargets(t *testing.T) {
	a := target.New(target.NVPTX, "sm_70")
	b := target.New(target.AMDGPU, "sm_70")
	c := target.New(target.NVPTX, "sm_80")
	assert.NotEqual(t, a.CanonicalKey(), b.CanonicalKey())
	assert.NotEqual(t, a.CanonicalKey(), c.CanonicalKey())
}

func TestHasFeature(t *testing.T) {
	d := target.New(target.AMDGPU, "gfx90a", "gfx9-fp16")
	assert.True(t, d.HasFeature("gfx9-fp16"))
	assert.False(t, d.HasFeature("wave32"))
}

func TestParseArchitecture(t *testing.T) {
	arch, err := target.ParseArchitecture("NVPTX")
	require.NoError(t, err)
	assert.Equal(t, target.NVPTX, arch)
	arch, err = target.ParseArchitecture("rocm")
	require.NoError(t, err)
	assert.Equal(t, target.AMDGPU, arch)
	_, err = target.ParseArchitecture("spirv")
	assert.Error(t, err)
}
