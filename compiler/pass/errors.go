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

package pass

import "fmt"

// InvariantViolationError reports a pass that produced a malformed module.
// This is a defect in the pass itself: it is fatal and never retried.
type InvariantViolationError struct {
	// Pass is the name of the offending pass.
	Pass string
	// Cause is the verification failure of the pass output.
	Cause error
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("pass %q violated a module invariant: %v", e.Pass, e.Cause)
}

// Unwrap returns the verification failure.
func (e *InvariantViolationError) Unwrap() error { return e.Cause }
