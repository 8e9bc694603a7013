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
	"bytes"
	"fmt"
	"strings"
)

// String returns a human readable dump of the module, used in logs and
// test diagnostics.
func (m *Module) String() string {
	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "module %s {\n", m.name)
	d := &dumper{buf: buf, number: map[*Value]int{}}
	d.region(m.root, "  ")
	fmt.Fprintf(buf, "}")
	return buf.String()
}

type dumper struct {
	buf    *bytes.Buffer
	number map[*Value]int
	next   int
}

func (d *dumper) region(r *Region, indent string) {
	for _, op := range r.Ops {
		d.op(op, indent)
	}
}

func (d *dumper) op(op *Operation, indent string) {
	d.buf.WriteString(indent)
	if len(op.Results) > 0 {
		names := make([]string, len(op.Results))
		for i, res := range op.Results {
			d.number[res] = d.next
			names[i] = fmt.Sprintf("%%%d", d.next)
			d.next++
		}
		fmt.Fprintf(d.buf, "%s = ", strings.Join(names, ", "))
	}
	d.buf.WriteString(string(op.Opcode))
	if len(op.Attrs) > 0 {
		fmt.Fprintf(d.buf, "[%v]", op.Attrs)
	}
	for i, v := range op.Operands {
		if i > 0 {
			d.buf.WriteString(",")
		}
		fmt.Fprintf(d.buf, " %%%d", d.number[v])
	}
	if len(op.Results) > 0 {
		fmt.Fprintf(d.buf, " : %v", op.Results[0].typ)
	}
	d.buf.WriteString("\n")
	for _, nested := range op.Regions {
		fmt.Fprintf(d.buf, "%s{\n", indent)
		d.region(nested, indent+"  ")
		fmt.Fprintf(d.buf, "%s}\n", indent)
	}
}
