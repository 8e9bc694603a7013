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

package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quint-lang/tactics/core/event/task"
)

func TestSignalFire(t *testing.T) {
	ctx := context.Background()
	s, fire := task.NewSignal()
	assert.False(t, s.Fired())
	fire(ctx)
	assert.True(t, s.Fired())
	assert.True(t, s.Wait(ctx))
}

func TestSignalWaitCancelled(t *testing.T) {
	s, _ := task.NewSignal()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, s.Wait(ctx))
}

func TestSignalTryWaitTimeout(t *testing.T) {
	s, _ := task.NewSignal()
	assert.False(t, s.TryWait(context.Background(), time.Millisecond))
}

func TestFiredSignal(t *testing.T) {
	assert.True(t, task.FiredSignal.Fired())
}

func TestOnceRunsOnce(t *testing.T) {
	ctx := context.Background()
	count := 0
	once := task.Once(func(context.Context) error { count++; return nil })
	once(ctx)
	once(ctx)
	assert.Equal(t, 1, count)
}
