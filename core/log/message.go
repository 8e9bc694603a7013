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

import (
	"fmt"
	"time"
)

// Message is a single log entry.
type Message struct {
	// Text is the message body.
	Text string
	// Time is the time the message was logged.
	Time time.Time
	// Severity is the importance of the message.
	Severity Severity
	// StopProcess indicates the process should stop after handling this.
	StopProcess bool
	// Tag is the optional tag associated with the logging context.
	Tag string
	// Trace is the chain of Enter scopes active when the message was logged.
	Trace []string
	// Values are the key-value pairs bound to the logging context.
	Values []Value
}

// Value is a single key-value pair bound to a logging context.
type Value struct {
	Name  string
	Value interface{}
}

// Messagef builds a Message at severity s from the printf-style arguments.
func (l *Logger) Messagef(s Severity, stopProcess bool, format string, args ...interface{}) *Message {
	var t time.Time
	if l.clock != nil {
		t = l.clock.Time()
	} else {
		t = time.Now()
	}
	return &Message{
		Text:        fmt.Sprintf(format, args...),
		Time:        t,
		Severity:    s,
		StopProcess: stopProcess,
		Tag:         l.tag,
		Trace:       l.trace,
		Values:      l.values,
	}
}
