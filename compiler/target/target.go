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

// Package target describes the compilation targets supported by the
// kernel compiler.
package target

import (
	"fmt"
	"sort"
	"strings"
)

// Architecture is the GPU architecture family of a target.
type Architecture int32

const (
	// UnknownArchitecture is the zero architecture. Never compilable.
	UnknownArchitecture Architecture = iota
	// NVPTX is the NVIDIA PTX architecture family.
	NVPTX
	// AMDGPU is the AMD GCN/RDNA architecture family.
	AMDGPU
)

func (a Architecture) String() string {
	switch a {
	case NVPTX:
		return "nvptx"
	case AMDGPU:
		return "amdgpu"
	}
	return "unknown"
}

// ParseArchitecture returns the architecture named by s.
func ParseArchitecture(s string) (Architecture, error) {
	switch strings.ToLower(s) {
	case "nvptx", "cuda":
		return NVPTX, nil
	case "amdgpu", "rocm":
		return AMDGPU, nil
	}
	return UnknownArchitecture, fmt.Errorf("unknown architecture %q", s)
}

// Descriptor identifies a compilation target: an architecture family, a
// chip variant and a feature-flag set. Descriptors are value objects; the
// canonical key is a pure function of the fields, so identical descriptors
// always produce identical cache keys.
type Descriptor struct {
	arch     Architecture
	chip     string
	features []string // sorted, deduplicated
}

// New returns a Descriptor for the given architecture, chip and features.
// Feature flags have set semantics: duplicates and ordering are ignored.
func New(arch Architecture, chip string, features ...string) Descriptor {
	set := map[string]bool{}
	for _, f := range features {
		if f != "" {
			set[f] = true
		}
	}
	sorted := make([]string, 0, len(set))
	for f := range set {
		sorted = append(sorted, f)
	}
	sort.Strings(sorted)
	return Descriptor{arch: arch, chip: chip, features: sorted}
}

// Architecture returns the architecture family.
func (d Descriptor) Architecture() Architecture { return d.arch }

// Chip returns the chip identifier, e.g. "sm_70" or "gfx90a".
func (d Descriptor) Chip() string { return d.chip }

// Features returns the sorted feature flags.
func (d Descriptor) Features() []string {
	return append([]string{}, d.features...)
}

// HasFeature returns true if the feature flag f is set.
func (d Descriptor) HasFeature(f string) bool {
	i := sort.SearchStrings(d.features, f)
	return i < len(d.features) && d.features[i] == f
}

// CanonicalKey returns the canonical cache key of the descriptor.
// It depends only on the descriptor fields, never on the host environment.
func (d Descriptor) CanonicalKey() string {
	if len(d.features) == 0 {
		return fmt.Sprintf("%v/%s", d.arch, d.chip)
	}
	return fmt.Sprintf("%v/%s+%s", d.arch, d.chip, strings.Join(d.features, "+"))
}

func (d Descriptor) String() string { return d.CanonicalKey() }
