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

package log

import (
	"context"
	"time"
)

type handlerKeyTy struct{}
type filterKeyTy struct{}
type clockKeyTy struct{}
type tagKeyTy struct{}
type traceKeyTy struct{}
type valuesKeyTy struct{}

var (
	handlerKey handlerKeyTy
	filterKey  filterKeyTy
	clockKey   clockKeyTy
	tagKey     tagKeyTy
	traceKey   traceKeyTy
	valuesKey  valuesKeyTy
)

// Clock is the interface to a type that provides message timestamps.
type Clock interface {
	Time() time.Time
}

// FixedClock is a Clock that always reports the same time.
// It is used by tests that compare rendered log output.
type FixedClock time.Time

// Time returns the fixed time.
func (c FixedClock) Time() time.Time { return time.Time(c) }

// PutHandler returns a new context with the Handler assigned to h.
func PutHandler(ctx context.Context, h Handler) context.Context {
	return context.WithValue(ctx, handlerKey, h)
}

// GetHandler returns the Handler assigned to ctx, or nil.
func GetHandler(ctx context.Context) Handler {
	out, _ := ctx.Value(handlerKey).(Handler)
	return out
}

// PutFilter returns a new context with the Filter assigned to f.
func PutFilter(ctx context.Context, f Filter) context.Context {
	return context.WithValue(ctx, filterKey, f)
}

// GetFilter returns the Filter assigned to ctx, or nil.
func GetFilter(ctx context.Context) Filter {
	out, _ := ctx.Value(filterKey).(Filter)
	return out
}

// PutClock returns a new context with the Clock assigned to c.
func PutClock(ctx context.Context, c Clock) context.Context {
	return context.WithValue(ctx, clockKey, c)
}

// GetClock returns the Clock assigned to ctx, or nil.
func GetClock(ctx context.Context) Clock {
	out, _ := ctx.Value(clockKey).(Clock)
	return out
}

// PutTag returns a new context with the tag assigned to t.
func PutTag(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, tagKey, t)
}

// GetTag returns the tag assigned to ctx, or an empty string.
func GetTag(ctx context.Context) string {
	out, _ := ctx.Value(tagKey).(string)
	return out
}

// Enter returns a new context with name appended to the trace scope chain.
func Enter(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, traceKey, append(GetTrace(ctx), name))
}

// GetTrace returns the trace scope chain assigned to ctx.
func GetTrace(ctx context.Context) []string {
	out, _ := ctx.Value(traceKey).([]string)
	return out[:len(out):len(out)]
}

func getValues(ctx context.Context) []Value {
	out, _ := ctx.Value(valuesKey).([]Value)
	return out[:len(out):len(out)]
}

// V is a map of key-value pairs to bind to a logging context.
type V map[string]interface{}

// Bind returns a new context with the pairs in v appended to the bound
// values, in sorted key order so the output is deterministic.
func (v V) Bind(ctx context.Context) context.Context {
	values := getValues(ctx)
	for _, name := range sortedKeys(v) {
		values = append(values, Value{Name: name, Value: v[name]})
	}
	return context.WithValue(ctx, valuesKey, values)
}
