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

package id_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quint-lang/tactics/core/data/id"
)

func TestOfBytesIsStable(t *testing.T) {
	a := id.OfBytes([]byte("kernel"), []byte("payload"))
	b := id.OfBytes([]byte("kernel"), []byte("payload"))
	assert.Equal(t, a, b)
	assert.True(t, a.IsValid())
}

func TestOfStringDiffers(t *testing.T) {
	assert.NotEqual(t, id.OfString("sm_70"), id.OfString("gfx90a"))
}

func TestParseRoundTrip(t *testing.T) {
	a := id.OfString("roundtrip")
	parsed, err := id.Parse(a.String())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)
}

func TestParseRejectsBadInput(t *testing.T) {
	_, err := id.Parse("zz")
	assert.Error(t, err)
	_, err = id.Parse("abcd")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	a := id.OfString("json")
	data, err := json.Marshal(a)
	require.NoError(t, err)
	var b id.ID
	require.NoError(t, json.Unmarshal(data, &b))
	assert.Equal(t, a, b)
}
