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

package ir

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// AttrKind identifies the payload type of an Attr.
type AttrKind uint8

const (
	// AttrInvalid is the zero attribute kind.
	AttrInvalid AttrKind = iota
	// AttrInt holds an int64.
	AttrInt
	// AttrFloat holds a float64.
	AttrFloat
	// AttrString holds a string.
	AttrString
	// AttrBool holds a bool.
	AttrBool
	// AttrInts holds an int64 slice.
	AttrInts
	// AttrType holds an ir.Type.
	AttrType
)

// Attr is a typed literal attribute value attached to an operation.
type Attr struct {
	kind AttrKind
	i    int64
	f    float64
	s    string
	b    bool
	ints []int64
	typ  Type
}

// IntAttr returns an attribute holding v.
func IntAttr(v int64) Attr { return Attr{kind: AttrInt, i: v} }

// FloatAttr returns an attribute holding v.
func FloatAttr(v float64) Attr { return Attr{kind: AttrFloat, f: v} }

// StringAttr returns an attribute holding v.
func StringAttr(v string) Attr { return Attr{kind: AttrString, s: v} }

// BoolAttr returns an attribute holding v.
func BoolAttr(v bool) Attr { return Attr{kind: AttrBool, b: v} }

// IntsAttr returns an attribute holding the int64 slice v.
func IntsAttr(v ...int64) Attr { return Attr{kind: AttrInts, ints: v} }

// TypeAttr returns an attribute holding the type t.
func TypeAttr(t Type) Attr { return Attr{kind: AttrType, typ: t} }

// Kind returns the payload kind of the attribute.
func (a Attr) Kind() AttrKind { return a.kind }

// Int returns the int64 payload and true if the attribute holds one.
func (a Attr) Int() (int64, bool) { return a.i, a.kind == AttrInt }

// Float returns the float64 payload and true if the attribute holds one.
func (a Attr) Float() (float64, bool) { return a.f, a.kind == AttrFloat }

// Str returns the string payload and true if the attribute holds one.
func (a Attr) Str() (string, bool) { return a.s, a.kind == AttrString }

// Bool returns the bool payload and true if the attribute holds one.
func (a Attr) Bool() (bool, bool) { return a.b, a.kind == AttrBool }

// Ints returns the int64 slice payload and true if the attribute holds one.
func (a Attr) Ints() ([]int64, bool) { return a.ints, a.kind == AttrInts }

// Type returns the type payload and true if the attribute holds one.
func (a Attr) Type() (Type, bool) { return a.typ, a.kind == AttrType }

func (a Attr) String() string {
	switch a.kind {
	case AttrInt:
		return strconv.FormatInt(a.i, 10)
	case AttrFloat:
		return strconv.FormatFloat(a.f, 'g', -1, 64)
	case AttrString:
		return strconv.Quote(a.s)
	case AttrBool:
		return strconv.FormatBool(a.b)
	case AttrInts:
		parts := make([]string, len(a.ints))
		for i, v := range a.ints {
			parts[i] = strconv.FormatInt(v, 10)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case AttrType:
		return a.typ.String()
	}
	return "<invalid>"
}

// encode writes a canonical byte representation of the attribute to w.
// Used for fingerprinting; must not depend on anything but the payload.
func (a Attr) encode(w io.Writer) {
	fmt.Fprintf(w, "%d:%v;", a.kind, a)
}

// Attributes is the attribute map of an operation.
// Key insertion order is irrelevant; all canonical walks sort the keys.
type Attributes map[string]Attr

// Keys returns the attribute keys in sorted order.
func (a Attributes) Keys() []string {
	out := make([]string, 0, len(a))
	for k := range a {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// clone returns a copy of the attribute map.
func (a Attributes) clone() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

func (a Attributes) String() string {
	parts := make([]string, 0, len(a))
	for _, k := range a.Keys() {
		parts = append(parts, fmt.Sprintf("%s=%v", k, a[k]))
	}
	return strings.Join(parts, ", ")
}
