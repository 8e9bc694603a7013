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
	"strings"
)

// Kind is the element kind of a tensor type.
type Kind uint8

const (
	// KindInvalid is the zero kind. It is never valid in a module.
	KindInvalid Kind = iota
	// I1 is the boolean element kind.
	I1
	// I8 is the 8-bit signed integer element kind.
	I8
	// I16 is the 16-bit signed integer element kind.
	I16
	// I32 is the 32-bit signed integer element kind.
	I32
	// I64 is the 64-bit signed integer element kind.
	I64
	// F16 is the 16-bit floating point element kind.
	F16
	// F32 is the 32-bit floating point element kind.
	F32
	// F64 is the 64-bit floating point element kind.
	F64
)

var kindNames = map[Kind]string{
	I1: "i1", I8: "i8", I16: "i16", I32: "i32", I64: "i64",
	F16: "f16", F32: "f32", F64: "f64",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "invalid"
}

// ParseKind returns the element kind named by s, e.g. "f32".
func ParseKind(s string) (Kind, error) {
	for k, n := range kindNames {
		if n == s {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown element kind %q", s)
}

// IsFloat returns true if k is a floating point kind.
func (k Kind) IsFloat() bool { return k == F16 || k == F32 || k == F64 }

// IsInt returns true if k is an integer kind.
func (k Kind) IsInt() bool { return k == I1 || k == I8 || k == I16 || k == I32 || k == I64 }

// Bits returns the width of the kind in bits.
func (k Kind) Bits() int {
	switch k {
	case I1:
		return 1
	case I8:
		return 8
	case I16, F16:
		return 16
	case I32, F32:
		return 32
	case I64, F64:
		return 64
	}
	return 0
}

// Type is a tensor type: an element kind and a shape.
// An empty shape denotes a scalar.
type Type struct {
	Kind Kind
	Dims []int64
}

// Scalar returns the scalar type with element kind k.
func Scalar(k Kind) Type { return Type{Kind: k} }

// Tensor returns the tensor type with element kind k and the given shape.
func Tensor(k Kind, dims ...int64) Type { return Type{Kind: k, Dims: dims} }

// IsValid returns true if the type has a known kind and positive dims.
func (t Type) IsValid() bool {
	if t.Kind == KindInvalid {
		return false
	}
	for _, d := range t.Dims {
		if d <= 0 {
			return false
		}
	}
	return true
}

// IsScalar returns true if the type has no dimensions.
func (t Type) IsScalar() bool { return len(t.Dims) == 0 }

// Rank returns the number of dimensions.
func (t Type) Rank() int { return len(t.Dims) }

// Elems returns the total number of elements.
func (t Type) Elems() int64 {
	n := int64(1)
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Equal returns true if t and o have the same kind and shape.
func (t Type) Equal(o Type) bool {
	return t.Kind == o.Kind && t.SameShape(o)
}

// SameShape returns true if t and o have the same shape.
func (t Type) SameShape(o Type) bool {
	if len(t.Dims) != len(o.Dims) {
		return false
	}
	for i, d := range t.Dims {
		if o.Dims[i] != d {
			return false
		}
	}
	return true
}

// WithKind returns a copy of t with the element kind replaced by k.
func (t Type) WithKind(k Kind) Type {
	return Type{Kind: k, Dims: t.Dims}
}

func (t Type) String() string {
	if t.IsScalar() {
		return t.Kind.String()
	}
	dims := make([]string, len(t.Dims))
	for i, d := range t.Dims {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("%v<%s>", t.Kind, strings.Join(dims, "x"))
}
