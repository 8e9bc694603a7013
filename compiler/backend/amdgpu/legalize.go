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

package amdgpu

import (
	"strings"

	"github.com/quint-lang/tactics/compiler/backend"
	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// promotions are the integer widths the VALU does not operate on
// directly; they are widened to 32 bits. The promoted registers land in
// the untyped b32 class so they never collide with native i32 registers.
var promotions = map[string]string{
	ir.I1.String():  "b32",
	ir.I8.String():  "b32",
	ir.I16.String(): "b32",
}

// mnemonicPromotions widens the instruction type suffixes to match.
// Memory ops keep their natural widths; only VALU suffixes are rewritten.
var mnemonicPromotions = map[string]string{
	"_" + ir.I1.String():  "_" + ir.I32.String(),
	"_" + ir.I8.String():  "_" + ir.I32.String(),
	"_" + ir.I16.String(): "_" + ir.I32.String(),
}

// legalize applies the width adjustments the GCN ISA mandates.
//
// Sub-32-bit integer arithmetic is silently widened to 32 bits. Half
// precision needs the fp16 feature flag: without it there is no correct
// widening, so lowering fails carrying the offending operation.
func (l *lowerer) legalize() error {
	if !l.desc.HasFeature(FeatureFP16) {
		for _, op := range l.m.Operations() {
			for _, res := range op.Results {
				if res.Type().Kind == ir.F16 {
					return &backend.LegalizationError{
						Op:     op.Opcode,
						Type:   res.Type(),
						Target: target.AMDGPU,
						Reason: "f16 requires the " + FeatureFP16 + " feature on " + l.desc.Chip(),
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
		if !strings.HasPrefix(inst.Opcode, "v_") {
			continue
		}
		for from, to := range mnemonicPromotions {
			if strings.HasSuffix(inst.Opcode, from) {
				inst.Opcode = strings.TrimSuffix(inst.Opcode, from) + to
			}
		}
	}
	return nil
}
