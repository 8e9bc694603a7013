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

package kernel

import (
	"context"
	"sync"

	"github.com/quint-lang/tactics/core/data/id"
	"github.com/quint-lang/tactics/core/event/task"
	"github.com/quint-lang/tactics/core/log"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// EntryState is the compilation state of a cache entry.
type EntryState int

const (
	// StateAbsent means the cache has no entry for the key.
	StateAbsent EntryState = iota
	// StatePending means a compilation for the key is in flight.
	StatePending
	// StateReady means the entry holds a compiled artifact.
	StateReady
	// StateFailed means the compilation for the key failed.
	StateFailed
)

func (s EntryState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	}
	return "absent"
}

// CompileFunc compiles a module into an artifact. It is invoked by the
// cache at most once per key.
type CompileFunc func(ctx context.Context) (*Artifact, error)

// Stats are the observable counters of a cache.
type Stats struct {
	Hits     int
	Misses   int
	Failures int
}

// entry transitions pending to ready or failed exactly once, then never
// changes until it is evicted.
type entry struct {
	state    EntryState
	done     task.Signal
	finish   task.Task
	artifact *Artifact
	err      error
}

// Cache maps (module fingerprint, target key) pairs to compiled artifacts,
// guaranteeing at most one concurrent compilation per key.
//
// The cache is process-scoped and never persisted. Failed entries are kept
// until explicitly evicted with Evict or Clear: a failure is reported
// identically to every requester of the key until the caller decides to
// retry by evicting. The mutex only guards the map and entry fields; it is
// never held while a CompileFunc runs.
type Cache struct {
	mutex      sync.Mutex
	entries    map[id.ID]*entry
	stats      Stats
	compileCtx context.Context
}

// NewCache returns an empty cache. Compilations run under ctx so that
// logging configuration flows to them; cancelling an individual caller's
// context does not cancel an in-flight compilation.
func NewCache(ctx context.Context) *Cache {
	return &Cache{
		entries:    map[id.ID]*entry{},
		compileCtx: ctx,
	}
}

// Key computes the cache key for compiling m against d.
func Key(m *ir.Module, d target.Descriptor) id.ID {
	fp := m.Fingerprint()
	return id.OfBytes(fp[:], []byte("•"), []byte(d.CanonicalKey()))
}

// GetOrCompile returns the artifact for compiling m against d, invoking
// compile on the first request for the key. Concurrent requesters of the
// same key block until the first compilation resolves and then share its
// result; requesters of other keys proceed independently.
//
// The returned artifact carries a reference owned by the caller; release
// it when done. If ctx is cancelled while waiting, the wait is abandoned
// but the compilation runs to completion and its result is cached.
func (c *Cache) GetOrCompile(ctx context.Context, m *ir.Module, d target.Descriptor, compile CompileFunc) (*Artifact, error) {
	key := Key(m, d)
	ctx = log.V{"kernel": key}.Bind(ctx)

	c.mutex.Lock()
	e, found := c.entries[key]
	if !found {
		done, finish := task.NewSignal()
		e = &entry{state: StatePending, done: done, finish: finish}
		c.entries[key] = e
		c.stats.Misses++
		c.mutex.Unlock()

		log.D(ctx, "compiling %v for %v", m.Name(), d)
		artifact, err := compile(log.V{"kernel": key}.Bind(c.compileCtx))

		c.mutex.Lock()
		if err != nil {
			e.state, e.err = StateFailed, err
			c.stats.Failures++
		} else {
			e.state, e.artifact = StateReady, artifact
		}
		fire := e.finish
		c.mutex.Unlock()
		fire(ctx)

		if err != nil {
			log.W(ctx, "compilation failed: %v", err)
			return nil, err
		}
		return artifact.Acquire(), nil
	}

	if e.state == StatePending {
		c.mutex.Unlock()
		log.D(ctx, "waiting on in-flight compilation")
		if !e.done.Wait(ctx) {
			return nil, task.StopReason(ctx)
		}
		c.mutex.Lock()
	}

	defer c.mutex.Unlock()
	if e.state == StateFailed {
		return nil, e.err
	}
	c.stats.Hits++
	return e.artifact.Acquire(), nil
}

// Contains returns true if the cache has an entry for the key.
func (c *Cache) Contains(key id.ID) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	_, found := c.entries[key]
	return found
}

// State returns the compilation state of the entry for the key.
func (c *Cache) State(key id.ID) EntryState {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if e, found := c.entries[key]; found {
		return e.state
	}
	return StateAbsent
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.stats
}

// Evict removes the entry for the key, releasing the cache's reference to
// its artifact. Pending entries are not evictable.
func (c *Cache) Evict(key id.ID) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	e, found := c.entries[key]
	if !found || e.state == StatePending {
		return false
	}
	if e.artifact != nil {
		e.artifact.Release()
	}
	delete(c.entries, key)
	return true
}

// Clear evicts every non-pending entry.
func (c *Cache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	for key, e := range c.entries {
		if e.state == StatePending {
			continue
		}
		if e.artifact != nil {
			e.artifact.Release()
		}
		delete(c.entries, key)
	}
}
