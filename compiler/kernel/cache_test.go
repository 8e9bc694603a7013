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

package kernel_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/kernel"
	"github.com/quint-lang/tactics/compiler/target"
	"github.com/quint-lang/tactics/core/log"
)

func addModule(t *testing.T) *ir.Module {
	b := ir.NewBuilder("vadd")
	x := b.Param(ir.Tensor(ir.F32, 4))
	y := b.Param(ir.Tensor(ir.F32, 4))
	b.Return(b.Append(ir.OpAdd, nil, x, y))
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

func fakeCompile(counter *int32) kernel.CompileFunc {
	return func(ctx context.Context) (*kernel.Artifact, error) {
		atomic.AddInt32(counter, 1)
		return kernel.NewArtifact([]byte{1, 2, 3}, "vadd", kernel.ResourceInfo{Registers: 4}), nil
	}
}

func TestCacheIdempotence(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.NVPTX, "sm_70")

	var calls int32
	a, err := c.GetOrCompile(ctx, m, d, fakeCompile(&calls))
	require.NoError(t, err)
	b, err := c.GetOrCompile(ctx, m, d, fakeCompile(&calls))
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, int32(1), calls)
	assert.Equal(t, 1, c.Stats().Hits)
	assert.Equal(t, 1, c.Stats().Misses)

	a.Release()
	b.Release()
	assert.True(t, a.Alive()) // cache still holds its reference
}

func TestCacheKeySeparatesTargets(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)

	var calls int32
	_, err := c.GetOrCompile(ctx, m, target.New(target.NVPTX, "sm_70"), fakeCompile(&calls))
	require.NoError(t, err)
	_, err = c.GetOrCompile(ctx, m, target.New(target.AMDGPU, "gfx90a"), fakeCompile(&calls))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls)
}

func TestSingleFlight(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.NVPTX, "sm_70")

	var calls int32
	release := make(chan struct{})
	slowCompile := func(ctx context.Context) (*kernel.Artifact, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return kernel.NewArtifact([]byte{7}, "vadd", kernel.ResourceInfo{}), nil
	}

	const n = 16
	results := make([]*kernel.Artifact, n)
	wg := sync.WaitGroup{}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			a, err := c.GetOrCompile(ctx, m, d, slowCompile)
			assert.NoError(t, err)
			results[i] = a
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls)
	for _, a := range results {
		assert.Same(t, results[0], a)
	}
}

func TestFailurePropagatesToAllWaiters(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.AMDGPU, "gfx90a")

	boom := errors.New("no emitter for chip")
	failCompile := func(ctx context.Context) (*kernel.Artifact, error) { return nil, boom }

	grp := errgroup.Group{}
	for i := 0; i < 4; i++ {
		grp.Go(func() error {
			_, err := c.GetOrCompile(ctx, m, d, failCompile)
			// Every waiter must receive the identical error value.
			assert.Same(t, boom, err)
			return nil
		})
	}
	require.NoError(t, grp.Wait())
	assert.Equal(t, kernel.StateFailed, c.State(kernel.Key(m, d)))
	assert.Equal(t, 1, c.Stats().Failures)
}

func TestFailedEntryRetriesAfterEvict(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.NVPTX, "sm_70")

	boom := errors.New("transient")
	_, err := c.GetOrCompile(ctx, m, d, func(context.Context) (*kernel.Artifact, error) { return nil, boom })
	assert.Same(t, boom, err)

	// Failed entries persist until evicted; the same key keeps failing.
	var calls int32
	_, err = c.GetOrCompile(ctx, m, d, fakeCompile(&calls))
	assert.Same(t, boom, err)
	assert.Equal(t, int32(0), calls)

	require.True(t, c.Evict(kernel.Key(m, d)))
	a, err := c.GetOrCompile(ctx, m, d, fakeCompile(&calls))
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls)
	a.Release()
}

func TestIntrospection(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.NVPTX, "sm_70")
	key := kernel.Key(m, d)

	assert.False(t, c.Contains(key))
	assert.Equal(t, kernel.StateAbsent, c.State(key))

	var calls int32
	a, err := c.GetOrCompile(ctx, m, d, fakeCompile(&calls))
	require.NoError(t, err)
	defer a.Release()

	assert.True(t, c.Contains(key))
	assert.Equal(t, kernel.StateReady, c.State(key))

	c.Clear()
	assert.False(t, c.Contains(key))
	assert.True(t, a.Alive()) // caller's reference survives eviction
}

func TestArtifactRefcount(t *testing.T) {
	a := kernel.NewArtifact([]byte{1}, "k", kernel.ResourceInfo{})
	a.Acquire()
	a.Release()
	assert.True(t, a.Alive())
	assert.NotNil(t, a.Code())
	a.Release()
	assert.False(t, a.Alive())
	assert.Nil(t, a.Code())
}

func TestAbandonedWaiterDoesNotCancelCompile(t *testing.T) {
	ctx := log.Testing(t)
	c := kernel.NewCache(ctx)
	m := addModule(t)
	d := target.New(target.NVPTX, "sm_70")

	started := make(chan struct{})
	release := make(chan struct{})
	compile := func(context.Context) (*kernel.Artifact, error) {
		close(started)
		<-release
		return kernel.NewArtifact([]byte{9}, "vadd", kernel.ResourceInfo{}), nil
	}

	go c.GetOrCompile(ctx, m, d, compile)
	<-started

	// A waiter that gives up gets the cancellation, not the result.
	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := c.GetOrCompile(cancelled, m, d, compile)
	assert.Equal(t, context.Canceled, err)

	// The in-flight compilation still completes and lands in the cache.
	close(release)
	a, err := c.GetOrCompile(ctx, m, d, compile)
	require.NoError(t, err)
	assert.Equal(t, []byte{9}, a.Code())
	a.Release()
}
