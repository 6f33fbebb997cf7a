// Copyright 2025 venslabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package scanerror defines the terminal error kinds of a scan.
package scanerror

import (
	"errors"
	"fmt"
)

// Kind classifies why a scan ended without a usable report.
type Kind string

const (
	FileNotFound        Kind = "FileNotFound"
	ToolNotInstalled    Kind = "ToolNotInstalled"
	Timeout             Kind = "Timeout"
	ToolExecutionFailed Kind = "ToolExecutionFailed"
	MalformedOutput     Kind = "MalformedOutput"
	UnexpectedError     Kind = "UnexpectedError"
)

// Kinds lists every kind, e.g. for pre-initializing metric labels.
var Kinds = []Kind{FileNotFound, ToolNotInstalled, Timeout, ToolExecutionFailed, MalformedOutput, UnexpectedError}

// Error is a terminal scan error.
type Error struct {
	Kind    Kind
	Message string
	// Trace is a diagnostic trace for operators. Only set for UnexpectedError.
	Trace string
	Err   error
}

func (e *Error) Error() string {
	if e.Trace != "" {
		return e.Message + "\n" + e.Trace
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind wrapping err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or UnexpectedError if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return UnexpectedError
}
