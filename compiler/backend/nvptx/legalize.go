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
	"strings"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// promotions are the integer widths PTX arithmetic does not operate on
// directly; they are widened to 32 bits. The promoted registers land in
// the untyped b32 class so they never collide with native i32 registers.
var promotions = map[string]string{
	ir.I1.String():  "b32",
	ir.I8.String():  "b32",
	ir.I16.String(): "b32",
}

// opcodePromotions widens the instruction type suffixes to match.
// Memory ops keep their natural widths; ld.global.i8 into a 32-bit
// register is legal PTX, and widening the access would overrun buffers
// sized at one byte per element.
var opcodePromotions = map[string]string{
	ir.I1.String():  ir.I32.String(),
	ir.I8.String():  ir.I32.String(),
	ir.I16.String(): ir.I32.String(),
}

// legalize applies the width adjustments the PTX ISA mandates.
//
// Sub-32-bit integer arithmetic is silently widened to 32 bits. Half
// precision floats need native hardware support: chips below sm_53 have
// none, and widening would change results, so that is a legalization
// failure carrying the offending operation.
func (l *lowerer) legalize() error {
	if sm := chipSM(l.desc.Chip()); sm < 53 {
		for _, op := range l.m.Operations() {
			for _, res := range op.Results {
				if res.Type().Kind == ir.F16 {
					return &backend.LegalizationError{
						Op:     op.Opcode,
						Type:   res.Type(),
						Target: target.NVPTX,
						Reason: "f16 requires sm_53 or newer, chip is " + l.desc.Chip(),
					}
				}
			}
		}
	}

	for i := range l.prog.Instructions {
		inst := &l.prog.Instructions[i]
		for j, r := range inst.Dst {
			if wide, ok := promotions[r.Class]; ok {
				inst.Dst[j].Class = wide
			}
		}
		for j, r := range inst.Srcs {
			if wide, ok := promotions[r.Class]; ok {
				inst.Srcs[j].Class = wide
			}
		}
		if strings.HasPrefix(inst.Opcode, "ld.") || strings.HasPrefix(inst.Opcode, "st.") {
			continue
		}
		for from, to := range opcodePromotions {
			if strings.HasSuffix(inst.Opcode, "."+from) {
				inst.Opcode = strings.TrimSuffix(inst.Opcode, "."+from) + "." + to
			}
		}
	}
	return nil
}
