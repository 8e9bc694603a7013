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
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/quint-lang/tactics/compiler/backend"
)

// Magic identifies a tactics GCN code object.
var Magic = [4]byte{'T', 'G', 'C', 'N'}

const containerVersion = 1

// Emitter serializes a lowered program as a code-object container. The
// encoding is a pure function of the program, so identical programs
// always produce identical bytes. It is stateless and safe for
// concurrent use.
type Emitter struct{}

// Emit implements backend.Emitter.
func (Emitter) Emit(ctx context.Context, p *backend.Program) ([]byte, error) {
	if p.Entry == "" {
		return nil, backend.ErrNoEntryPoint
	}
	if len(p.Instructions) == 0 {
		return nil, backend.ErrNoInstructions
	}

	w := &codeWriter{}
	w.bytes(Magic[:])
	w.u8(containerVersion)
	w.str(p.Target.Chip())
	w.str(p.Entry)
	w.u32(uint32(p.SharedMemoryBytes))

	w.u32(uint32(len(p.Params)))
	for _, param := range p.Params {
		w.str(param.Name)
		w.u64(uint64(param.SizeBytes))
	}

	w.u32(uint32(len(p.Instructions)))
	for _, inst := range p.Instructions {
		w.str(inst.Opcode)
		w.regs(inst.Dst)
		w.regs(inst.Srcs)
		w.u8(uint8(len(inst.Imm)))
		for _, imm := range inst.Imm {
			w.str(imm)
		}
	}
	return w.buf.Bytes(), w.err
}

// codeWriter accumulates the container bytes, little endian throughout.
// The first write error sticks; Bytes writes cannot fail on a
// bytes.Buffer, so err only guards against oversized fields.
type codeWriter struct {
	buf bytes.Buffer
	err error
}

func (w *codeWriter) bytes(b []byte) { w.buf.Write(b) }
func (w *codeWriter) u8(v uint8)     { w.buf.WriteByte(v) }

func (w *codeWriter) u32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *codeWriter) u64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *codeWriter) str(s string) {
	if len(s) > 0xffff {
		if w.err == nil {
			w.err = fmt.Errorf("string field of %d bytes exceeds container limit", len(s))
		}
		return
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(len(s)))
	w.buf.Write(b[:])
	w.buf.WriteString(s)
}

func (w *codeWriter) regs(rs []backend.Reg) {
	w.u8(uint8(len(rs)))
	for _, r := range rs {
		w.str(r.Class)
		w.u32(uint32(r.Index))
	}
}
