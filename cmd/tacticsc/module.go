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

package main

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"

	"github.com/quint-lang/tactics/compiler/ir"
)

// moduleSpec is the JSON module description accepted by compile.
// Operations are listed in order; operands reference earlier operations
// by position.
type moduleSpec struct {
	Name string   `json:"name"`
	Ops  []opSpec `json:"ops"`
}

type opSpec struct {
	Op    string                 `json:"op"`
	Type  *typeSpec              `json:"type,omitempty"`
	Value *float64               `json:"value,omitempty"`
	Args  []int                  `json:"args,omitempty"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

type typeSpec struct {
	Kind string  `json:"kind"`
	Dims []int64 `json:"dims,omitempty"`
}

func (t typeSpec) resolve() (ir.Type, error) {
	kind, err := ir.ParseKind(t.Kind)
	if err != nil {
		return ir.Type{}, err
	}
	return ir.Tensor(kind, t.Dims...), nil
}

func loadModule(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading module description")
	}
	return parseModule(data)
}

func parseModule(data []byte) (*ir.Module, error) {
	spec := moduleSpec{}
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(err, "parsing module description")
	}
	if spec.Name == "" {
		return nil, errors.New("module description has no name")
	}

	b := ir.NewBuilder(spec.Name)
	results := make([]*ir.Value, len(spec.Ops))
	for i, op := range spec.Ops {
		args := make([]*ir.Value, len(op.Args))
		for j, ref := range op.Args {
			if ref < 0 || ref >= i || results[ref] == nil {
				// A nil result usually means the referenced op itself
				// failed to build; surface that diagnosis, not the ref.
				if err := b.Err(); err != nil {
					return nil, errors.Wrapf(err, "op %d", ref)
				}
				return nil, errors.Errorf("op %d references invalid operand %d", i, ref)
			}
			args[j] = results[ref]
		}

		switch op.Op {
		case "param":
			if op.Type == nil {
				return nil, errors.Errorf("op %d: param requires a type", i)
			}
			t, err := op.Type.resolve()
			if err != nil {
				return nil, errors.Wrapf(err, "op %d", i)
			}
			results[i] = b.Param(t)
		case "const":
			if op.Type == nil || op.Value == nil {
				return nil, errors.Errorf("op %d: const requires a type and a value", i)
			}
			t, err := op.Type.resolve()
			if err != nil {
				return nil, errors.Wrapf(err, "op %d", i)
			}
			if t.Kind.IsFloat() {
				results[i] = b.ConstFloat(t, *op.Value)
			} else {
				results[i] = b.ConstInt(t, int64(*op.Value))
			}
		case "ret":
			b.Return(args...)
		default:
			attrs, err := parseAttrs(op.Attrs)
			if err != nil {
				return nil, errors.Wrapf(err, "op %d", i)
			}
			results[i] = b.Append(ir.Op(op.Op), attrs, args...)
		}
	}

	m, err := b.Build()
	return m, errors.Wrap(err, "building module")
}

// parseAttrs maps JSON attribute values onto dialect attributes. Whole
// JSON numbers become integers; there is no way to write a non-splat
// float attribute, which the dialect does not have either.
func parseAttrs(raw map[string]interface{}) (ir.Attributes, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	attrs := ir.Attributes{}
	for key, value := range raw {
		switch v := value.(type) {
		case bool:
			attrs[key] = ir.BoolAttr(v)
		case string:
			attrs[key] = ir.StringAttr(v)
		case float64:
			if v == math.Trunc(v) {
				attrs[key] = ir.IntAttr(int64(v))
			} else {
				attrs[key] = ir.FloatAttr(v)
			}
		case []interface{}:
			ints := make([]int64, len(v))
			for i, elem := range v {
				f, ok := elem.(float64)
				if !ok || f != math.Trunc(f) {
					return nil, errors.Errorf("attribute %q: element %d is not an integer", key, i)
				}
				ints[i] = int64(f)
			}
			attrs[key] = ir.IntsAttr(ints...)
		default:
			return nil, errors.Errorf("attribute %q has unsupported type %T", key, value)
		}
	}
	return attrs, nil
}
