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

package nvptx

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/quint-lang/tactics/compiler/backend"
)

// Emitter renders a lowered program as PTX text. PTX is itself the
// machine-code format the driver consumes, so the rendered bytes are the
// kernel binary. It is stateless and safe for concurrent use.
type Emitter struct{}

// regPrefixes maps register classes to PTX register name prefixes.
var regPrefixes = map[string]string{
	"f16": "%h", "f32": "%f", "f64": "%fd",
	"i32": "%r", "i64": "%rd", "b32": "%b",
	"u32": "%u", "u64": "%a",
}

// regTypes maps register classes to PTX .reg declaration types.
var regTypes = map[string]string{
	"f16": ".f16", "f32": ".f32", "f64": ".f64",
	"i32": ".s32", "i64": ".s64", "b32": ".b32",
	"u32": ".u32", "u64": ".b64",
}

// sregs are the special read-only registers referenced by the prologue.
var sregs = []string{"%ctaid.x", "%ntid.x", "%tid.x"}

func renderReg(r backend.Reg) string {
	if r.Class == "sreg" {
		return sregs[r.Index]
	}
	prefix, ok := regPrefixes[r.Class]
	if !ok {
		prefix = "%" + r.Class
	}
	return fmt.Sprintf("%s%d", prefix, r.Index)
}

// Emit implements backend.Emitter.
func (Emitter) Emit(ctx context.Context, p *backend.Program) ([]byte, error) {
	if p.Entry == "" {
		return nil, backend.ErrNoEntryPoint
	}
	if len(p.Instructions) == 0 {
		return nil, backend.ErrNoInstructions
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "//\n// tactics kernel %s\n//\n", p.Entry)
	fmt.Fprintf(buf, ".version 7.0\n.target %s\n.address_size 64\n\n", p.Target.Chip())

	if p.SharedMemoryBytes > 0 {
		fmt.Fprintf(buf, ".shared .align 4 .b8 %s_stage[%d];\n\n", p.Entry, p.SharedMemoryBytes)
	}

	fmt.Fprintf(buf, ".visible .entry %s(\n", p.Entry)
	for i, param := range p.Params {
		comma := ","
		if i == len(p.Params)-1 {
			comma = ""
		}
		fmt.Fprintf(buf, "\t.param .u64 %s%s\n", param.Name, comma)
	}
	fmt.Fprintf(buf, ")\n{\n")

	for _, class := range regClasses(p) {
		max := 0
		forEachReg(p, func(r backend.Reg) {
			if r.Class == class && r.Index >= max {
				max = r.Index + 1
			}
		})
		fmt.Fprintf(buf, "\t.reg %s \t%s<%d>;\n", regTypes[class], regPrefixes[class], max)
	}
	buf.WriteString("\n")

	for _, inst := range p.Instructions {
		operands := []string{}
		for _, r := range inst.Dst {
			operands = append(operands, renderReg(r))
		}
		for _, r := range inst.Srcs {
			operands = append(operands, renderReg(r))
		}
		operands = append(operands, inst.Imm...)
		fmt.Fprintf(buf, "\t%s", inst.Opcode)
		if len(operands) > 0 {
			fmt.Fprintf(buf, " \t%s", strings.Join(operands, ", "))
		}
		buf.WriteString(";")
		if inst.Comment != "" {
			fmt.Fprintf(buf, " \t// %s", inst.Comment)
		}
		buf.WriteString("\n")
	}
	fmt.Fprintf(buf, "}\n")
	return buf.Bytes(), nil
}

// regClasses returns the declarable register classes of p, sorted.
func regClasses(p *backend.Program) []string {
	set := map[string]bool{}
	forEachReg(p, func(r backend.Reg) {
		if r.Class != "sreg" {
			set[r.Class] = true
		}
	})
	out := make([]string, 0, len(set))
	for class := range set {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

func forEachReg(p *backend.Program, f func(backend.Reg)) {
	for _, inst := range p.Instructions {
		for _, r := range inst.Dst {
			f(r)
		}
		for _, r := range inst.Srcs {
			f(r)
		}
	}
}
