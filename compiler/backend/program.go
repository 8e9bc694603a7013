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

package backend

import (
	"fmt"

	"github.com/quint-lang/tactics/compiler/ir"
	"github.com/quint-lang/tactics/compiler/target"
)

// Reg is a virtual register in a lowered program. Class names are target
// specific (e.g. "f32" renders as %f3 in PTX and v3 in GCN).
type Reg struct {
	Class string
	Index int
}

func (r Reg) String() string { return fmt.Sprintf("%s:%d", r.Class, r.Index) }

// Param describes one kernel argument in the lowered argument layout.
type Param struct {
	Name string
	Type ir.Type
	// SizeBytes is the byte size of the backing buffer.
	SizeBytes int64
}

// Instruction is a single lowered instruction with a target mnemonic.
type Instruction struct {
	Opcode string
	Dst    []Reg
	Srcs   []Reg
	// Imm holds rendered immediate operands.
	Imm []string
	// Comment is attached to the instruction in textual output.
	Comment string
}

// Program is the target-specific lowered representation handed to the
// emitter: an instruction sequence over virtual registers plus the
// resource requirements derived during lowering.
type Program struct {
	Target       target.Descriptor
	Entry        string
	Params       []Param
	Instructions []Instruction

	// Registers is the number of virtual registers used.
	Registers int
	// SharedMemoryBytes is the static shared memory the kernel needs.
	SharedMemoryBytes int
}

// Push appends an instruction.
func (p *Program) Push(i Instruction) { p.Instructions = append(p.Instructions, i) }
