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

import "fmt"

// MalformedModuleError reports the first structural violation found while
// constructing or verifying a module. It is a caller defect and is never
// retried by the compiler.
type MalformedModuleError struct {
	// Opcode is the opcode of the offending operation, if known.
	Opcode Op
	// Reason describes the violation.
	Reason string
}

func (e *MalformedModuleError) Error() string {
	if e.Opcode != "" {
		return fmt.Sprintf("malformed module: %v: %s", e.Opcode, e.Reason)
	}
	return fmt.Sprintf("malformed module: %s", e.Reason)
}

func malformedf(op Op, f string, args ...interface{}) error {
	return &MalformedModuleError{Opcode: op, Reason: fmt.Sprintf(f, args...)}
}

func malformed(op Op, err error) error {
	if m, ok := err.(*MalformedModuleError); ok {
		return m
	}
	return &MalformedModuleError{Opcode: op, Reason: err.Error()}
}
