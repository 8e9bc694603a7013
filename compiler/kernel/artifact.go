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

// Package kernel holds compiled kernel artifacts and the process-scoped
// cache that deduplicates their compilation.
package kernel

import (
	"fmt"
	"sync/atomic"
)

// ResourceInfo is the resource-requirement metadata of a compiled kernel,
// derived from the lowered module rather than the machine code.
type ResourceInfo struct {
	// Registers is the number of registers required per thread.
	Registers int `json:"registers"`
	// SharedMemoryBytes is the static shared memory requirement.
	SharedMemoryBytes int `json:"sharedMemoryBytes"`
	// MaxThreadsPerBlock is the largest launchable block size.
	MaxThreadsPerBlock int `json:"maxThreadsPerBlock"`
	// BlockDimLimit is the per-dimension thread-block limit.
	BlockDimLimit [3]int `json:"blockDimLimit"`
}

// Artifact is a compiled kernel: opaque machine code plus the metadata the
// runtime needs to load and launch it.
//
// Artifacts are reference counted. The cache holds one reference for as
// long as the entry lives; every value returned by GetOrCompile carries a
// reference that the caller releases when done with it.
type Artifact struct {
	code      []byte
	entry     string
	resources ResourceInfo
	refs      int32
}

// NewArtifact returns an artifact with a single reference, owned by the
// caller.
func NewArtifact(code []byte, entry string, resources ResourceInfo) *Artifact {
	return &Artifact{code: code, entry: entry, resources: resources, refs: 1}
}

// Code returns the machine code bytes. Immutable; callers must not write.
func (a *Artifact) Code() []byte { return a.code }

// Entry returns the entry point symbol name.
func (a *Artifact) Entry() string { return a.entry }

// Resources returns the resource-requirement metadata.
func (a *Artifact) Resources() ResourceInfo { return a.resources }

// Acquire adds a reference to the artifact.
func (a *Artifact) Acquire() *Artifact {
	if atomic.AddInt32(&a.refs, 1) <= 1 {
		panic(fmt.Errorf("acquire of released artifact %q", a.entry))
	}
	return a
}

// Release drops a reference. When the last reference is dropped the
// machine code is discarded.
func (a *Artifact) Release() {
	refs := atomic.AddInt32(&a.refs, -1)
	switch {
	case refs < 0:
		panic(fmt.Errorf("release of released artifact %q", a.entry))
	case refs == 0:
		a.code = nil
	}
}

// Alive reports whether the artifact still holds references.
func (a *Artifact) Alive() bool { return atomic.LoadInt32(&a.refs) > 0 }
