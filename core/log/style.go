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
	"bytes"
	"fmt"
	"strings"
)

// Style controls how messages are rendered to text.
type Style struct {
	// Timestamps controls whether the message time is printed.
	Timestamps bool
	// Tag controls whether the context tag is printed.
	Tag bool
	// Trace controls whether the Enter scope chain is printed.
	Trace bool
	// Values controls whether bound key-value pairs are printed.
	Values bool
}

// Brief is a style that only prints the severity and the message text.
var Brief = Style{}

// Normal is a style that prints the commonly wanted message parts.
var Normal = Style{Tag: true, Trace: true, Values: true}

// Detailed is a style that prints everything.
var Detailed = Style{Timestamps: true, Tag: true, Trace: true, Values: true}

// Print returns the message m printed using the style s.
func (s Style) Print(m *Message) string {
	buf := &bytes.Buffer{}
	buf.WriteString(m.Severity.Short())
	if s.Timestamps {
		fmt.Fprintf(buf, " %s", m.Time.Format("15:04:05.000"))
	}
	if s.Tag && m.Tag != "" {
		fmt.Fprintf(buf, " [%s]", m.Tag)
	}
	if s.Trace && len(m.Trace) > 0 {
		fmt.Fprintf(buf, " {%s}", strings.Join(m.Trace, "->"))
	}
	fmt.Fprintf(buf, ": %s", m.Text)
	if s.Values {
		for _, v := range m.Values {
			fmt.Fprintf(buf, " %s=%v", v.Name, v.Value)
		}
	}
	return buf.String()
}
