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

package log

// Severity defines the severity of a logging message.
type Severity int32

// The values must be identically ordered to their importance.
const (
	// Debug is the severity for debugging messages, hidden by default.
	Debug Severity = iota
	// Info is the severity for informational messages.
	Info
	// Warning is the severity for warning messages.
	Warning
	// Error is the severity for error messages.
	Error
	// Fatal is the severity for process-terminating messages.
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "Debug"
	case Info:
		return "Info"
	case Warning:
		return "Warning"
	case Error:
		return "Error"
	case Fatal:
		return "Fatal"
	}
	return "?"
}

// Short returns the severity as a single character.
func (s Severity) Short() string {
	switch s {
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warning:
		return "W"
	case Error:
		return "E"
	case Fatal:
		return "F"
	}
	return "?"
}

// Filter is a predicate on message severity.
type Filter interface {
	// ShowSeverity returns true if messages at severity s should be shown.
	ShowSeverity(s Severity) bool
}

// ShowSeverity implements Filter, showing messages at severity s and above.
func (s Severity) ShowSeverity(o Severity) bool { return o >= s }

// Pass is a Filter that shows all messages.
var Pass Filter = Severity(Debug)
