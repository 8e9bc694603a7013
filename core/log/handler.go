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
	"io"
	"os"
	"sync"
)

// Handler is the interface implemented by types that consume log messages.
type Handler interface {
	Handle(*Message)
	Close()
}

type handler struct {
	handle func(*Message)
	close  func()
}

func (h handler) Handle(m *Message) { h.handle(m) }
func (h handler) Close()            { h.close() }

// NewHandler returns a Handler that calls handle for each message and close
// when the handler is closed. close may be nil.
func NewHandler(handle func(*Message), close func()) Handler {
	if close == nil {
		close = func() {}
	}
	return handler{handle, close}
}

// Writer returns a Handler that writes styled messages to w.
func Writer(s Style, w io.Writer) Handler {
	mutex := &sync.Mutex{}
	return NewHandler(func(m *Message) {
		mutex.Lock()
		defer mutex.Unlock()
		fmt.Fprintln(w, s.Print(m))
	}, nil)
}

// Std returns a Handler that writes errors to os.Stderr and everything else
// to os.Stdout.
func Std(s Style) Handler {
	mutex := &sync.Mutex{}
	return NewHandler(func(m *Message) {
		mutex.Lock()
		defer mutex.Unlock()
		if m.Severity >= Error {
			fmt.Fprintln(os.Stderr, s.Print(m))
		} else {
			fmt.Fprintln(os.Stdout, s.Print(m))
		}
	}, nil)
}

// Fork forwards all messages to all the supplied handlers.
func Fork(handlers ...Handler) Handler {
	return NewHandler(func(m *Message) {
		for _, h := range handlers {
			h.Handle(m)
		}
	}, func() {
		for _, h := range handlers {
			h.Close()
		}
	})
}
